package types

import "errors"

// Contract-violation errors shared across the pipeline. These indicate a
// programming or configuration mistake and always propagate to the
// caller, unlike per-file parse failures which are captured as data.
var (
	ErrInvalidChunkType = errors.New("invalid chunk type")
	ErrInvalidLineRange = errors.New("invalid line range")
	ErrMissingField     = errors.New("missing required field")
)
