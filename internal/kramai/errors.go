package kramai

import (
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

// Kind classifies an upstream failure. Handlers map kinds to HTTP
// statuses and the retry helper uses them to decide whether to retry.
type Kind string

const (
	KindContentPolicy  Kind = "content_policy_violation"
	KindInvalidRequest Kind = "invalid_request"
	KindRateLimit      Kind = "rate_limit"
	KindQuota          Kind = "quota"
	KindContextLength  Kind = "context_length"
	KindTransient      Kind = "transient"
	KindUnknown        Kind = "unknown"
)

// Error wraps an upstream failure with its classified kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classified kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindUnknown
}

// Retryable reports whether a failure of the given kind is worth retrying.
// Content-policy and invalid-request failures are deterministic: the same
// input will fail the same way.
func Retryable(k Kind) bool {
	return k != KindContentPolicy && k != KindInvalidRequest
}

// classify maps an OpenAI SDK error to a Kind using its structured
// code/status fields rather than message sniffing.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := KindTransient // network errors, timeouts, 5xx
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.Code == "content_policy_violation":
			kind = KindContentPolicy
		case apierr.Code == "context_length_exceeded":
			kind = KindContextLength
		case apierr.StatusCode == 429 && strings.Contains(apierr.Code, "insufficient_quota"):
			kind = KindQuota
		case apierr.StatusCode == 429:
			kind = KindRateLimit
		case apierr.StatusCode >= 500:
			kind = KindTransient
		case apierr.StatusCode >= 400:
			kind = KindInvalidRequest
		default:
			kind = KindUnknown
		}
	}

	return &Error{Kind: kind, Op: op, Err: err}
}
