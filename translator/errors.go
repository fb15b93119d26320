package translator

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnavailable marks a missing credential or an unreachable
	// language-generation service.
	ErrCapabilityUnavailable = errors.New("capability interpreter unavailable")
	// ErrMalformedResponse marks a reply that does not contain a plan.
	ErrMalformedResponse = errors.New("malformed capability response")
)

// CallError reports a failed exchange with a provider.
type CallError struct {
	Provider string
	Status   int   // HTTP status, 0 when the request never completed
	Kind     error // ErrCapabilityUnavailable or ErrMalformedResponse
	Msg      string
	Cause    error
}

func (e *CallError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %v: HTTP %d: %s", e.Provider, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Provider, e.Kind, msg)
}

func (e *CallError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func unavailable(provider string, cause error) error {
	return &CallError{Provider: provider, Kind: ErrCapabilityUnavailable, Cause: cause}
}

func malformed(provider, format string, args ...any) error {
	return &CallError{Provider: provider, Kind: ErrMalformedResponse, Msg: fmt.Sprintf(format, args...)}
}
