package workspace

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a workspace operation could not proceed.
type ErrorKind string

const (
	ErrorKindNotFound       ErrorKind = "not_found"
	ErrorKindNotADirectory  ErrorKind = "not_a_directory"
	ErrorKindReadError      ErrorKind = "read_error"
	ErrorKindWriteError     ErrorKind = "write_error"
	errorKindUnknown        ErrorKind = ""
	pathDoesNotExistMessage           = "Path does not exist"
	pathNotDirectoryMessage           = "Path is not a directory"
	readDirectoryFailedFormat         = "Failed to read directory: %v"
	readFileFailedFormat              = "Failed to read file: %v"
	writeFileFailedFormat             = "Failed to write file: %v"
	invalidUTF8Message                = "stream did not contain valid UTF-8"
)

// OperationError carries the kind of a failure and a human-readable message
// that embeds the underlying operating system error text.
type OperationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error returns the human-readable message.
func (operationError *OperationError) Error() string {
	return operationError.Message
}

// Unwrap exposes the underlying operating system error, when present.
func (operationError *OperationError) Unwrap() error {
	return operationError.Err
}

// KindOf reports the ErrorKind of err, or an empty kind when err is not an OperationError.
func KindOf(err error) ErrorKind {
	var operationError *OperationError
	if errors.As(err, &operationError) {
		return operationError.Kind
	}
	return errorKindUnknown
}

func newNotFoundError(cause error) error {
	return &OperationError{Kind: ErrorKindNotFound, Message: pathDoesNotExistMessage, Err: cause}
}

func newNotADirectoryError() error {
	return &OperationError{Kind: ErrorKindNotADirectory, Message: pathNotDirectoryMessage}
}

func newReadError(messageFormat string, cause error) error {
	return &OperationError{Kind: ErrorKindReadError, Message: fmt.Sprintf(messageFormat, cause), Err: cause}
}

func newWriteError(cause error) error {
	return &OperationError{Kind: ErrorKindWriteError, Message: fmt.Sprintf(writeFileFailedFormat, cause), Err: cause}
}
