package core

// error_messages.go defines user-friendly error messages with codes for
// support reference. Operators can quote the code to support staff for faster
// diagnosis.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - No headers or rows detected in the file
//	IMP002 - Columns could not be matched automatically
//	IMP003 - Detected columns produced no usable rows
//	IMP004 - Selected columns produced no usable rows
//	IMP005 - Equipment ID missing at save
//	IMP006 - Selected column is not in the file
//	IMP007 - Import not found (expired or superseded)
//	IMP008 - Nothing ready to save
//	IMP009 - Unknown instrument profile
//	IMP010 - Too many imports in progress
//	IMP011 - File contains invalid characters
//	IMP012 - File exceeds the size limit
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Saved sessions could not be read or written
//	STO002 - Local database busy
//	STO003 - Mirror database unreachable
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original
// technical error when users report ERR000.
//
// Errors are matched by kind first (errors.Is / errors.As), then by message
// pattern, case-insensitively. The first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgMappingGuessedUnproductive = UserMessage{
		Message: "The detected columns produced no usable rows",
		Action:  "Review the column mapping and submit it again",
		Code:    "IMP003",
	}
	msgMappingUserUnproductive = UserMessage{
		Message: "The selected columns produced no usable rows",
		Action:  "Check the file contents or choose different columns",
		Code:    "IMP004",
	}
)

// errorKind maps a sentinel to its user message.
type errorKind struct {
	target error
	msg    UserMessage
}

var errorKinds = []errorKind{
	{
		target: ErrInputEmpty,
		msg: UserMessage{
			Message: "No headers or rows were detected in the file",
			Action:  "Check that the file is a delimited export with a header row",
			Code:    "IMP001",
		},
	},
	{
		target: ErrMappingIncomplete,
		msg: UserMessage{
			Message: "Columns could not be matched automatically",
			Action:  "Choose a column for each field and submit the mapping",
			Code:    "IMP002",
		},
	},
	{
		target: ErrMappingUnproductive,
		msg:    msgMappingGuessedUnproductive,
	},
	{
		target: ErrValidationMissing,
		msg: UserMessage{
			Message: "Equipment ID is required to save",
			Action:  "Enter an equipment ID and save again",
			Code:    "IMP005",
		},
	},
	{
		target: ErrUnknownHeader,
		msg: UserMessage{
			Message: "Selected column is not in the file",
			Action:  "Choose a column from the file's header list",
			Code:    "IMP006",
		},
	},
	{
		target: ErrCandidateNotFound,
		msg: UserMessage{
			Message: "Import not found",
			Action:  "The import may have expired. Please parse the file again",
			Code:    "IMP007",
		},
	},
	{
		target: ErrNothingToSave,
		msg: UserMessage{
			Message: "There is nothing ready to save",
			Action:  "Parse the file and complete the mapping first",
			Code:    "IMP008",
		},
	},
	{
		target: ErrUnknownProfile,
		msg: UserMessage{
			Message: "Unknown instrument profile",
			Action:  "Choose one of the configured instrument profiles",
			Code:    "IMP009",
		},
	},
	{
		target: ErrTooManyParses,
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP010",
		},
	},
	{
		target: ErrStorageFailure,
		msg: UserMessage{
			Message: "Saved sessions could not be read or written",
			Action:  "Previously saved sessions are unchanged. Please try again",
			Code:    "STO001",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors from libraries that carry no sentinel.
// More specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Export the file again as UTF-8 or plain text",
			Code:    "IMP011",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Export a shorter date range",
			Code:    "IMP012",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Local database is busy",
			Action:  "Please try again",
			Code:    "STO002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the mirror database",
			Action:  "Local sessions are saved. The mirror will catch up on the next change",
			Code:    "STO003",
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
// A MappingUnproductive error is reported differently depending on whether
// the mapping was confirmed by the user or chosen automatically.
//
// Example:
//
//	err := fmt.Errorf("parse: %w", ErrInputEmpty)
//	msg := MapError(err)
//	// msg.Code == "IMP001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var me *MappingError
	if errors.As(err, &me) && errors.Is(me.Err, ErrMappingUnproductive) {
		if me.UserConfirmed() {
			return msgMappingUserUnproductive
		}
		return msgMappingGuessedUnproductive
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
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
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
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

// NewUserError creates a UserError by mapping a technical error.
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
