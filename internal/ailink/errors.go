package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
)

// CompletionError classifies a failed completion with a stable code.
type CompletionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *CompletionError) Error() string {
	if e == nil {
		return "ailink error"
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CompletionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RawResponseError wraps a decoding failure with the raw model output.
type RawResponseError struct {
	Err error
	Raw json.RawMessage
}

func (e *RawResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "ailink error"
	}
	return e.Err.Error()
}

func (e *RawResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func mapProviderError(err error) *CompletionError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &CompletionError{Code: "AILINK_PROVIDER_TIMEOUT", Message: "provider request timed out", Err: err}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := strings.TrimSpace(perr.Message)
		switch {
		case status == 401 || status == 403:
			return &CompletionError{Code: "AILINK_PROVIDER_AUTH", Message: "provider authentication failed", Details: details, Err: err}
		case status == 429:
			return &CompletionError{Code: "AILINK_PROVIDER_RATE_LIMIT", Message: "provider rate limited", Details: details, Err: err}
		case status >= 500 && status <= 599:
			return &CompletionError{Code: "AILINK_PROVIDER_UNAVAILABLE", Message: "provider unavailable", Details: details, Err: err}
		case status >= 400 && status <= 499:
			return &CompletionError{Code: "AILINK_PROVIDER_BAD_REQUEST", Message: "provider rejected request", Details: details, Err: err}
		default:
			return &CompletionError{Code: "AILINK_PROVIDER_ERROR", Message: "provider request failed", Details: details, Err: err}
		}
	}

	return &CompletionError{Code: "AILINK_PROVIDER_ERROR", Message: "provider request failed", Details: err.Error(), Err: err}
}
