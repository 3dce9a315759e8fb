package ai

import (
	"context"
	"fmt"
)

// Message roles accepted by the completion APIs.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the single capability the chat core depends on: messages in,
// one assistant message out. Adapters map their backend's failures onto
// *RequestError so callers can tell retryable from non-retryable outcomes.
type Provider interface {
	MakeRequest(ctx context.Context, messages []Message) (Message, error)
}

type ErrorKind string

const (
	KindTransient      ErrorKind = "transient"
	KindAuth           ErrorKind = "auth"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindUnknown        ErrorKind = "unknown"
)

type RequestError struct {
	Kind ErrorKind
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("ai: request failed (%s): %v", e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func requestError(kind ErrorKind, err error) *RequestError {
	return &RequestError{Kind: kind, Err: err}
}

// kindForStatus buckets an HTTP status from a completion backend.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 408 || status == 429 || status >= 500:
		return KindTransient
	case status >= 400 && status < 500:
		return KindInvalidRequest
	default:
		return KindUnknown
	}
}
