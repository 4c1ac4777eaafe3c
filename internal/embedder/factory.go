package embedder

import "fmt"

// Options selects and configures a provider. Zero values fall back to
// provider defaults.
type Options struct {
	Provider  string
	Model     string
	Endpoint  string
	APIKeyEnv string
	Dimension int
	BatchSize int
}

// New creates an embedder for the named provider
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(opts.Endpoint, opts.Model, opts.APIKeyEnv, opts.Dimension, opts.BatchSize), nil
	case ProviderLocal, "":
		return NewLocalProvider(opts.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
