package listing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrForbidden is returned when the caller lacks the permission for an intent.
var ErrForbidden = errors.New("action not permitted")

// ErrUnknownCollection is returned for intents or queries on unregistered collections.
var ErrUnknownCollection = errors.New("unknown collection")

// FallbackMessage is shown when an error carries no usable server message.
const FallbackMessage = "An unexpected error occurred"

// ConflictMessage is shown when the server rejects a write because the record
// changed since it was read.
const ConflictMessage = "This record was changed by someone else. Reload and try again"

// Failure classifies an error for presentation.
type Failure string

const (
	// FailureTransport covers unreachable servers and non-2xx responses without
	// a structured body.
	FailureTransport Failure = "transport"
	// FailureValidation is a structured rejection; nothing changed server side.
	FailureValidation Failure = "validation"
	// FailureConflict is an optimistic concurrency rejection (409/412).
	FailureConflict Failure = "conflict"
	// FailureForbidden means the permission check failed before any request.
	FailureForbidden Failure = "forbidden"
	// FailureStale marks a superseded read. It is never shown to the user.
	FailureStale Failure = "stale"
)

// FieldError is one item of a structured error body. Servers use any of the
// three fields.
type FieldError struct {
	Message string `json:"message,omitempty"`
	Msg     string `json:"msg,omitempty"`
	Field   string `json:"field,omitempty"`
}

// Text returns the first non-empty of Message, Msg and Field.
func (f FieldError) Text() string {
	switch {
	case f.Message != "":
		return f.Message
	case f.Msg != "":
		return f.Msg
	default:
		return f.Field
	}
}

// ServerError is a non-2xx response from a remote collection.
type ServerError struct {
	Status  int
	Message string       // the "error" field of the body
	Errors  []FieldError // the "errors" / "validationErrors" field of the body
}

func (e *ServerError) Error() string {
	if msg, ok := e.UserMessage(); ok {
		return fmt.Sprintf("server returned %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// Structured reports whether the body carried an error or validation errors.
func (e *ServerError) Structured() bool {
	return e.Message != "" || len(e.Errors) > 0
}

// UserMessage extracts the message to show. A single error string wins over
// the validation list, which is joined into one sentence.
func (e *ServerError) UserMessage() (string, bool) {
	if e.Message != "" {
		return e.Message, true
	}
	var parts []string
	for _, fe := range e.Errors {
		if t := strings.TrimSpace(fe.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return "Validation errors: " + strings.Join(parts, ", "), true
}

// Classify maps an error to a Failure.
func Classify(err error) Failure {
	if errors.Is(err, ErrForbidden) {
		return FailureForbidden
	}
	if errors.Is(err, ErrStaleRead) {
		return FailureStale
	}
	var se *ServerError
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusConflict || se.Status == http.StatusPreconditionFailed:
			return FailureConflict
		case se.Structured():
			return FailureValidation
		}
	}
	return FailureTransport
}

// ErrStaleRead marks a result that arrived for a key the consumer no longer shows.
var ErrStaleRead = errors.New("superseded read")

// MessageFor returns the user-facing message for err. fallback formats errors
// without a structured server message; nil means FallbackMessage.
func MessageFor(err error, fallback func(error) string) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case FailureForbidden:
		return "You do not have permission to perform this action"
	case FailureConflict:
		return ConflictMessage
	}
	var se *ServerError
	if errors.As(err, &se) {
		if msg, ok := se.UserMessage(); ok {
			return msg
		}
	}
	if fallback != nil && !errors.Is(err, context.Canceled) {
		if msg := fallback(err); msg != "" {
			return msg
		}
	}
	return FallbackMessage
}
