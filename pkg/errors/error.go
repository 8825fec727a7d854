package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrorType defines distinct categories for errors originating from skelevision components.
type ErrorType string

const (
	// AcquisitionError represents errors occurring while resolving or downloading the source video.
	AcquisitionError ErrorType = "acquisition_error"
	// OpenError represents errors opening the local media file or spawning the encode sink process.
	OpenError ErrorType = "open_error"
	// InferenceError represents errors in the pose estimation worker (spawn or protocol failures).
	InferenceError ErrorType = "inference_error"
	// EncodeError represents errors occurring while feeding or finishing the encoder process.
	EncodeError ErrorType = "encode_error"
	// ValidationError represents errors caused by invalid input parameters or configuration.
	ValidationError ErrorType = "validation_error"
	// SystemError represents underlying system issues, such as file I/O errors or command execution problems.
	SystemError ErrorType = "system_error"
)

// StructuredError represents a detailed error originating from skelevision operations.
// It includes a type, message, optional details, timestamp, and a specific error code.
// It implements the standard Go `error` interface.
type StructuredError struct {
	// Type categorizes the error (e.g., AcquisitionError, EncodeError).
	Type ErrorType `json:"type"`
	// Message provides a concise, human-readable description of the error.
	Message string `json:"message"`
	// Details offers additional context or the underlying error message, if available.
	Details string `json:"details,omitempty"`
	// Timestamp marks when the error occurred in RFC3339 format.
	Timestamp string `json:"timestamp"`
	// Code provides a specific integer code unique to the error source within its type.
	Code int `json:"code"`
}

// Error implements the standard `error` interface for StructuredError.
// It returns a formatted string including the error type, message, and details.
func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Message, e.Details)
}

// JSON returns the StructuredError serialized as a JSON string.
// Returns an empty string and an error if marshalling fails.
func (e *StructuredError) JSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// New creates a new StructuredError instance.
// It automatically sets the Timestamp to the current time.
func New(errorType ErrorType, message, details string, code int) *StructuredError {
	return &StructuredError{
		Type:      errorType,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Format(time.RFC3339),
		Code:      code,
	}
}

// Wrap creates a new StructuredError, using the message from an existing standard Go error
// as the Details field.
// If the input error `err` is nil, Details will be empty.
func Wrap(err error, errorType ErrorType, message string, code int) *StructuredError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return New(errorType, message, details, code)
}

// Is reports whether err is a *StructuredError of the given type.
func Is(err error, errorType ErrorType) bool {
	se, ok := err.(*StructuredError)
	return ok && se.Type == errorType
}
