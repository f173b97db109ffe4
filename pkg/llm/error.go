package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProviderError is returned when a language model backend rejects or fails
// a generation call. StatusCode is zero for transport-level failures.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.Provider, e.Message)
}

// ProviderTimeoutError is returned when a generation call does not complete
// within the provider's configured timeout.
type ProviderTimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e ProviderTimeoutError) Error() string {
	return fmt.Sprintf("provider %s timed out after %s", e.Provider, e.Timeout)
}

// IsProviderError reports whether err originated in a provider backend,
// including timeouts.
func IsProviderError(err error) bool {
	var pe ProviderError
	var te ProviderTimeoutError
	return errors.As(err, &pe) || errors.As(err, &te)
}

// IsProviderTimeout reports whether err is a provider timeout.
func IsProviderTimeout(err error) bool {
	var te ProviderTimeoutError
	return errors.As(err, &te)
}

// NetTimeout reports whether a transport error was caused by a deadline,
// either the request context's or the HTTP client's.
func NetTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
