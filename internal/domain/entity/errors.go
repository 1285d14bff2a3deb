package entity

import "errors"

// Error taxonomy for the fatal pipeline stages. Fetch, decode and model
// failures abort the whole job; persistence and relay failures are
// best-effort and never surface as these.
var (
	ErrInvalidURL      = errors.New("invalid image url")
	ErrFetchFailed     = errors.New("image fetch failed")
	ErrPayloadTooLarge = errors.New("image payload too large")
	ErrDecodeFailed    = errors.New("image decode failed")
	ErrModelInference  = errors.New("model inference failed")
)
