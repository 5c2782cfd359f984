package core

// # Error Codes Reference
//
// Errors surfaced to API clients are mapped to a message, a suggested
// action and a code that support staff can search logs for.
//
// # Submission Errors (SUB001-SUB099)
//
//	SUB001 - Mapping not found: no mapping is configured for this form
//	SUB002 - System busy: too many submissions in progress
//	SUB003 - Invalid payload: request body is not a JSON object
//	SUB004 - Request cancelled
//	SUB005 - Request timeout
//
// # Relation Errors (REL001-REL099)
//
//	REL001 - Reference not resolved: a referenced name has no match
//	REL002 - Subscriber not resolved: an email has no directory entry
//
// # Capacity Errors (CAP001-CAP099)
//
//	CAP001 - Capacity deficit: not all sends fit the channel's slots
//
// # Remote Board Errors (CRM001-CRM099)
//
//	CRM001 - Create failed: the parent item could not be created
//	CRM002 - Child create failed
//	CRM003 - Update failed
//	CRM004 - Remote rejected credentials
//	CRM005 - Remote rate limit
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Persist failed: reservation could not be stored
//	DB002 - Connection refused
//	DB003 - Duplicate key
//
// # Admin Errors (ADM001-ADM099)
//
//	ADM001 - Invalid directory import: payload failed validation
//
// # Default Error (ERR000)
//
//	ERR000 - Unexpected error; check logs for the technical error.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage is the client-facing rendering of an error.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is matched in order against the lowercased error text.
// More specific patterns come first.
var errorPatterns = []errorPattern{
	{"mapping not found", UserMessage{"No mapping is configured for this form", "Check the form title", "SUB001"}},
	{"too many submissions", UserMessage{"System is busy processing other submissions", "Please wait a moment and try again", "SUB002"}},
	{"invalid payload", UserMessage{"Submission payload is not valid JSON", "Send a JSON object with a fields map", "SUB003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "SUB004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Please try again", "SUB005"}},

	{"no matching reference", UserMessage{"A referenced name could not be matched", "Check the spelling of the referenced item", "REL001"}},
	{"no subscriber", UserMessage{"An email address is not in the directory", "Use the address the person is registered with", "REL002"}},

	{"capacity deficit", UserMessage{"Not all sends fit the channel's available slots", "Pick another date or reduce the quantity", "CAP001"}},

	{"unauthorized", UserMessage{"The remote board rejected our credentials", "Contact an administrator", "CRM004"}},
	{"rate limit", UserMessage{"The remote board is rate limiting requests", "Please wait a moment before trying again", "CRM005"}},
	{"remote create child", UserMessage{"A related item could not be created", "The main item was created; check its relations", "CRM002"}},
	{"remote create item", UserMessage{"The item could not be created on the board", "Please try again later", "CRM001"}},
	{"remote update", UserMessage{"The item could not be updated", "The item was created; check its columns", "CRM003"}},

	{"invalid directory import", UserMessage{"The directory payload is not valid", "Fix the listed rows and import again", "ADM001"}},

	{"duplicate", UserMessage{"This record already exists", "No action needed", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to the database", "Please try again in a few moments", "DB002"}},
	{"persist", UserMessage{"A reservation could not be stored", "The item was created; inform the scheduling team", "DB001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message.
// Unmatched errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string { return e.User.Message }

func (e *UserError) Unwrap() error { return e.Technical }

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
