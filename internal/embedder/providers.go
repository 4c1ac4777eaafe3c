package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultOpenAIModel    = "text-embedding-3-small"
	DefaultOpenAIEndpoint = "https://api.openai.com/v1/embeddings"

	OpenAIDimension = 1536
	LocalDimension  = 384

	DefaultBatchSize = 50

	// concurrent sub-batch requests per EncodeBatch call
	maxInFlightBatches = 4

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// OpenAIProvider embeds text through an OpenAI-compatible /v1/embeddings
// endpoint. Any server speaking that protocol works, including local
// Ollama and llama.cpp instances. The HTTP client and API key are
// resolved lazily on first use so that constructing an indexer never
// requires credentials.
type OpenAIProvider struct {
	endpoint  string
	model     string
	apiKeyEnv string
	dimension int
	batchSize int

	initOnce   sync.Once
	initErr    error
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIProvider creates an OpenAI-compatible embedder. Empty
// arguments fall back to the package defaults.
func NewOpenAIProvider(endpoint, model, apiKeyEnv string, dimension, batchSize int) *OpenAIProvider {
	if endpoint == "" {
		endpoint = DefaultOpenAIEndpoint
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dimension <= 0 {
		dimension = OpenAIDimension
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OpenAIProvider{
		endpoint:  endpoint,
		model:     model,
		apiKeyEnv: apiKeyEnv,
		dimension: dimension,
		batchSize: batchSize,
	}
}

func (o *OpenAIProvider) init() error {
	o.initOnce.Do(func() {
		if o.apiKeyEnv != "" {
			o.apiKey = os.Getenv(o.apiKeyEnv)
			if o.apiKey == "" {
				o.initErr = fmt.Errorf("%w: %s not set", ErrProviderFailed, o.apiKeyEnv)
				return
			}
		}
		o.httpClient = &http.Client{Timeout: 30 * time.Second}
	})
	return o.initErr
}

func (o *OpenAIProvider) Encode(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return zeroVector(o.dimension), nil
	}
	vectors, err := o.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (o *OpenAIProvider) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	// blanks get the zero vector and never reach the API
	var liveIdx []int
	for i, text := range texts {
		if isBlank(text) {
			results[i] = zeroVector(o.dimension)
		} else {
			liveIdx = append(liveIdx, i)
		}
	}
	if len(liveIdx) == 0 {
		return results, nil
	}

	if err := o.init(); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlightBatches)

	for start := 0; start < len(liveIdx); start += o.batchSize {
		end := start + o.batchSize
		if end > len(liveIdx) {
			end = len(liveIdx)
		}
		batch := liveIdx[start:end]

		g.Go(func() error {
			inputs := make([]string, len(batch))
			for i, idx := range batch {
				inputs[i] = texts[idx]
			}

			config := DefaultRetryConfig()
			vectors, err := retryWithBackoff(gctx, config, func() ([][]float32, error) {
				return o.callAPI(gctx, inputs)
			})
			if err != nil {
				return fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("%w: got %d embeddings for %d inputs", ErrProviderFailed, len(vectors), len(batch))
			}

			for i, idx := range batch {
				if len(vectors[i]) != o.dimension {
					return fmt.Errorf("%w: got %d, want %d", ErrBadDimension, len(vectors[i]), o.dimension)
				}
				results[idx] = vectors[i]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": o.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vectors := make([][]float32, len(apiResp.Data))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}

func (o *OpenAIProvider) Dimension() int {
	return o.dimension
}

func (o *OpenAIProvider) Close() error {
	if o.httpClient != nil {
		o.httpClient.CloseIdleConnections()
	}
	return nil
}

// LocalProvider produces deterministic vectors derived from the text's
// hash. It involves no model and no network, which makes it suitable for
// offline use and tests; vectors are stable across runs but carry no
// semantic similarity.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a deterministic hash-based embedder
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{dimension: dimension}
}

func (l *LocalProvider) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isBlank(text) {
		return zeroVector(l.dimension), nil
	}

	vector := make([]float32, l.dimension)
	seed := []byte(text)
	for i := 0; i < l.dimension; i += sha256.Size {
		sum := sha256.Sum256(append(seed, byte(i/sha256.Size)))
		for j := 0; j < sha256.Size && i+j < l.dimension; j++ {
			vector[i+j] = float32(sum[j])/127.5 - 1.0
		}
	}
	return NormalizeVector(vector), nil
}

func (l *LocalProvider) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := l.Encode(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Close() error {
	return nil
}
