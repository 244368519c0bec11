package llm

import "fmt"

// ArgumentError reports an invalid argument passed to a gateway operation:
// an unrecognized role, a bad tool-choice mode, or a malformed tool
// descriptor.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// TokenLimitError reports that a request would push the cumulative input
// token count past the configured ceiling. It is never retried: retrying
// cannot fix a token overage.
type TokenLimitError struct {
	Current int
	Needed  int
	Max     int
}

func (e *TokenLimitError) Error() string {
	return fmt.Sprintf(
		"request may exceed input token limit (current: %d, needed: %d, max: %d)",
		e.Current, e.Needed, e.Max,
	)
}

// CapabilityError reports a request the active model cannot serve, such as
// image input to a non-multimodal model.
type CapabilityError struct {
	Model      string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("model %s does not support %s", e.Model, e.Capability)
}

// EmptyResponseError reports that the provider returned no usable content.
type EmptyResponseError struct {
	Message string
}

func (e *EmptyResponseError) Error() string {
	if e.Message == "" {
		return "empty or invalid response from LLM"
	}
	return e.Message
}

// ProviderError wraps a transport-level failure from a provider adapter.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
	}
	return fmt.Sprintf("[%s] %s (retryable=%v)", e.Provider, e.Message, e.Retryable)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ProviderErrorFromStatus maps an HTTP status code to a ProviderError with
// the appropriate retryability.
func ProviderErrorFromStatus(provider string, statusCode int, message string, cause error) *ProviderError {
	pe := &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		pe.Retryable = true
	case 400, 401, 403, 404, 413, 422:
		pe.Retryable = false
	default:
		// Unknown status codes default to retryable.
		pe.Retryable = true
	}
	return pe
}
