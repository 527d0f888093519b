package pii

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference.
//
// # Extraction Errors (EXT001-EXT099)
//
//	EXT001 - PII extraction failed
//	         Action: Check that the extraction service is running and try again
//	         Match:  ErrExtractionFailed
//
//	EXT002 - Extraction already in progress
//	         Action: Wait for the current extraction to finish
//	         Match:  ErrBusy
//
//	EXT003 - Extraction service is busy
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent extractions"
//
// # Selection Errors (SEL001-SEL099)
//
//	SEL001 - No file selected
//	         Action: Add at least one document before extracting
//	         Match:  ErrNothingSelected, "no file provided"
//
//	SEL002 - File is no longer selected
//	         Action: Refresh the page and try again
//	         Match:  ErrIndexOutOfRange
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	          Action: Upload fewer or smaller documents
//	          Patterns: "file too large", "request body too large"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
//	RATE002 - Server is at capacity
//	          Action: Please try again in a few minutes
//	          Patterns: "too many active sessions"
//
// # Default Error (ERR000)
//
//	ERR000 - An unexpected error occurred
//	         Action: Please try again or contact support
//
// Guard sentinels are matched first with errors.Is, then the error text is
// matched case-insensitively against the patterns in order, and finally
// ErrExtractionFailed catches the remaining transport failures.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgExtractionFailed = UserMessage{
		Message: "PII extraction failed",
		Action:  "Check that the extraction service is running and try again",
		Code:    "EXT001",
	}
	msgBusy = UserMessage{
		Message: "Extraction already in progress",
		Action:  "Wait for the current extraction to finish",
		Code:    "EXT002",
	}
	msgNothingSelected = UserMessage{
		Message: "No file selected",
		Action:  "Add at least one document before extracting",
		Code:    "SEL001",
	}
	msgIndexOutOfRange = UserMessage{
		Message: "File is no longer selected",
		Action:  "Refresh the page and try again",
		Code:    "SEL002",
	}
)

// sentinelMessages are checked with errors.Is before any pattern matching.
// ErrExtractionFailed is not listed here: it wraps most transport causes, so
// it is matched after the patterns to let a more specific cause win.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrBusy, msgBusy},
	{ErrNothingSelected, msgNothingSelected},
	{ErrIndexOutOfRange, msgIndexOutOfRange},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins.
var errorPatterns = []errorPattern{
	{
		pattern: "too many concurrent extractions",
		msg: UserMessage{
			Message: "Extraction service is busy",
			Action:  "Please wait a moment and try again",
			Code:    "EXT003",
		},
	},
	{pattern: "no file provided", msg: msgNothingSelected},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File too large",
			Action:  "Upload fewer or smaller documents",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File too large",
			Action:  "Upload fewer or smaller documents",
			Code:    "FILE001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "too many active sessions",
		msg: UserMessage{
			Message: "Server is at capacity",
			Action:  "Please try again in a few minutes",
			Code:    "RATE002",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.Is(err, ErrExtractionFailed) {
		return msgExtractionFailed
	}

	return defaultMessage
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
