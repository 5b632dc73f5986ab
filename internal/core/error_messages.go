package core

// error_messages.go maps technical errors to user-friendly messages with codes
// for support reference. When users encounter errors, they can quote the code
// to support staff for faster diagnosis.
//
// # Network Errors (NET001-NET099)
//
// Errors reaching the back-office API:
//
//	NET001 - Unreachable: The server could not be reached
//	         Action: Check your connection and try again
//	         Patterns: "connection refused", "no such host", "connection reset"
//
//	NET002 - Timeout: The server took too long to respond
//	         Action: Please try again in a few moments
//	         Patterns: "context deadline exceeded", "timeout"
//
//	NET003 - Busy: Too many requests are already running
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent fetches"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Rejected: The server rejected the change
//	         Action: Review the highlighted fields and try again
//	         Matches: structured server errors, "validation"
//
// # Conflicts (CNF001-CNF099)
//
//	CNF001 - Conflict: The record was changed by someone else
//	         Action: Reload the list and apply your change again
//	         Matches: HTTP 409 and 412
//
// # Authorization (AUTH001-AUTH099)
//
//	AUTH001 - Forbidden: You do not have permission
//	          Action: Ask an administrator for access
//	          Matches: permission check failures, HTTP 401 and 403
//
// # List Errors (LST001-LST099)
//
//	LST001 - Unknown list: The list does not exist
//	         Action: Pick a list from the dashboard
//	         Patterns: "unknown collection", "unknown screen"
//
//	LST002 - Session expired: The screen state was discarded after inactivity
//	         Action: Reload the page
//	         Patterns: "session not found"
//
//	LST003 - Request cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit", HTTP 429
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Typed errors are checked first. The remaining patterns are matched
// case-insensitively with strings.Contains and the first match wins, so more
// specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgUnreachable = UserMessage{
		Message: "The server could not be reached",
		Action:  "Check your connection and try again",
		Code:    "NET001",
	}
	msgTimeout = UserMessage{
		Message: "The server took too long to respond",
		Action:  "Please try again in a few moments",
		Code:    "NET002",
	}
	msgBusy = UserMessage{
		Message: "Too many requests are already running",
		Action:  "Please wait a moment and try again",
		Code:    "NET003",
	}
	msgValidation = UserMessage{
		Message: "The server rejected the change",
		Action:  "Review the highlighted fields and try again",
		Code:    "VAL001",
	}
	msgConflict = UserMessage{
		Message: listing.ConflictMessage,
		Action:  "Reload the list and apply your change again",
		Code:    "CNF001",
	}
	msgForbidden = UserMessage{
		Message: "You do not have permission to perform this action",
		Action:  "Ask an administrator for access",
		Code:    "AUTH001",
	}
	msgUnknownList = UserMessage{
		Message: "This list does not exist",
		Action:  "Pick a list from the dashboard",
		Code:    "LST001",
	}
	msgSessionExpired = UserMessage{
		Message: "This screen expired after a period of inactivity",
		Action:  "Reload the page",
		Code:    "LST002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "LST003",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// Network
	{pattern: "connection refused", msg: msgUnreachable},
	{pattern: "no such host", msg: msgUnreachable},
	{pattern: "connection reset", msg: msgUnreachable},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "too many concurrent fetches", msg: msgBusy},

	// Lists and sessions
	{pattern: "unknown collection", msg: msgUnknownList},
	{pattern: "unknown screen", msg: msgUnknownList},
	{pattern: "session not found", msg: msgSessionExpired},
	{pattern: "context canceled", msg: msgCancelled},

	// Validation
	{pattern: "validation", msg: msgValidation},

	// Rate limiting
	{pattern: "rate limit", msg: msgRateLimited},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: listing.FallbackMessage,
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(&listing.ServerError{Status: 409})
//	// msg.Code == "CNF001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch listing.Classify(err) {
	case listing.FailureForbidden:
		return msgForbidden
	case listing.FailureConflict:
		return msgConflict
	case listing.FailureValidation:
		msg := msgValidation
		if text, ok := serverMessage(err); ok {
			msg.Message = text
		}
		return msg
	}

	var se *listing.ServerError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return msgForbidden
		case http.StatusTooManyRequests:
			return msgRateLimited
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return msgTimeout
		case http.StatusBadGateway, http.StatusServiceUnavailable:
			return msgUnreachable
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func serverMessage(err error) (string, bool) {
	var se *listing.ServerError
	if !errors.As(err, &se) {
		return "", false
	}
	return se.UserMessage()
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// UserMessageText returns only the message of MapError. It is the fallback
// the mutation executor and table renderer use for errors the server did not
// describe.
func UserMessageText(err error) string {
	return MapError(err).Message
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
