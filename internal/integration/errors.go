package integration

import (
	"errors"
	"fmt"
)

// Error is a command failure.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is shown to the user.
	Message string

	DocID   string
	Command string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes command failures.
type ErrorCode string

const (
	// ErrCodeMalformedDocumentData indicates document data that does not parse.
	ErrCodeMalformedDocumentData ErrorCode = "MALFORMED_DOCUMENT_DATA"

	// ErrCodeInvalidCommand indicates an unknown command name.
	ErrCodeInvalidCommand ErrorCode = "INVALID_COMMAND"

	// ErrCodeMissingDocumentID indicates a command without a document id.
	ErrCodeMissingDocumentID ErrorCode = "MISSING_DOCUMENT_ID"

	// ErrCodeUnresolvedItem reports cited items missing from the database.
	// It is only ever shown, never returned.
	ErrCodeUnresolvedItem ErrorCode = "UNRESOLVED_CITATION_ITEM"

	// ErrCodeStyleNotFound indicates a style that is neither installed nor
	// installable.
	ErrCodeStyleNotFound ErrorCode = "STYLE_NOT_FOUND"

	// ErrCodeUserCancelled indicates the user dismissed a dialog or prompt.
	ErrCodeUserCancelled ErrorCode = "USER_CANCELLED"

	// ErrCodeNotInCitation indicates editCitation outside a citation field.
	ErrCodeNotInCitation ErrorCode = "NOT_IN_CITATION"

	// ErrCodeCannotInsert indicates the host refused a new field.
	ErrCodeCannotInsert ErrorCode = "CANNOT_INSERT_FIELD"

	// ErrCodeNoBibliography indicates a bibliography command the document
	// or style cannot satisfy.
	ErrCodeNoBibliography ErrorCode = "NO_BIBLIOGRAPHY"

	// ErrCodeHost indicates a failing host, database or store call.
	ErrCodeHost ErrorCode = "HOST_FAILURE"

	// ErrCodeClosed indicates a command sent after Close.
	ErrCodeClosed ErrorCode = "CLOSED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.DocID != "" && e.Command != "" {
		return fmt.Sprintf("%s: %s (doc=%s, command=%s)", e.Code, msg, e.DocID, e.Command)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsMalformed reports whether err is a document data parse failure.
func IsMalformed(err error) bool { return CodeOf(err) == ErrCodeMalformedDocumentData }

// IsInvalidCommand reports whether err rejects an unknown command.
func IsInvalidCommand(err error) bool { return CodeOf(err) == ErrCodeInvalidCommand }

// IsMissingDocumentID reports whether err rejects an empty document id.
func IsMissingDocumentID(err error) bool { return CodeOf(err) == ErrCodeMissingDocumentID }

// IsStyleNotFound reports whether err is an unavailable style.
func IsStyleNotFound(err error) bool { return CodeOf(err) == ErrCodeStyleNotFound }

// IsUserCancelled reports whether the user aborted the command.
func IsUserCancelled(err error) bool { return CodeOf(err) == ErrCodeUserCancelled }

// IsClosed reports whether the interface was closed.
func IsClosed(err error) bool { return CodeOf(err) == ErrCodeClosed }

var errPlaceholderLost = errors.New("inserted field not found among document fields")
