package proxy

import (
	"fmt"
	"net/http"
)

// Kind classifies proxy failures.
type Kind string

const (
	KindUnconfigured Kind = "unconfigured"
	KindInvalidInput Kind = "invalid_input"
	KindUpstream     Kind = "upstream_error"
	KindInternal     Kind = "internal_error"
)

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrUnconfigured = &Error{Kind: KindUnconfigured}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrUpstream     = &Error{Kind: KindUpstream}
	ErrInternal     = &Error{Kind: KindInternal}
)

// Error is the failure returned by every Service operation. Status is the
// HTTP status the caller should answer with and Detail the message safe to
// show to clients. Err holds the cause, which may carry details meant for
// server logs only.
type Error struct {
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("proxy: %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("proxy: %s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func unconfigured() *Error {
	return &Error{
		Kind:   KindUnconfigured,
		Status: http.StatusServiceUnavailable,
		Detail: "ElevenLabs API key not configured",
	}
}

func invalidInput(detail string) *Error {
	return &Error{
		Kind:   KindInvalidInput,
		Status: http.StatusBadRequest,
		Detail: detail,
	}
}

func upstream(status int, body string, cause error) *Error {
	return &Error{
		Kind:   KindUpstream,
		Status: status,
		Detail: "ElevenLabs API error: " + body,
		Err:    cause,
	}
}

func internal(cause error) *Error {
	return &Error{
		Kind:   KindInternal,
		Status: http.StatusInternalServerError,
		Detail: "synthesis failed",
		Err:    cause,
	}
}
