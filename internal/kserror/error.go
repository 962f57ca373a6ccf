package kserror

import "net/http"

type (
	// A KSError represents the error format that can be rendered by the keepsake server.
	KSError struct {
		HTTPCode   int `json:"-"`
		FieldError err `json:"error"`
	}

	err struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	if kserr, ok := err.(*KSError); ok {
		return kserr.HTTPCode
	}
	return http.StatusInternalServerError
}

// Tag returns the machine tag of the error, if any.
func Tag(err error) string {
	if kserr, ok := err.(*KSError); ok {
		return kserr.FieldError.Tag
	}
	return ""
}

// New returns a new KSError with the given message.
func New(message string) *KSError {
	return &KSError{FieldError: err{Message: message}}
}

// NewWithTagCode returns a new KSError with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *KSError {
	return &KSError{HTTPCode: code, FieldError: err{Tag: tag, Message: message}}
}

// Validation returns a bad-input error. The caller should not retry as is.
func Validation(message string) *KSError {
	return NewWithTagCode(http.StatusBadRequest, "validation", message)
}

// NotFound returns an error for an absent record.
func NotFound(message string) *KSError {
	return NewWithTagCode(http.StatusNotFound, "not-found", message)
}

// Forbidden returns an ownership failure. No more detail than "forbidden" is disclosed.
func Forbidden() *KSError {
	return NewWithTagCode(http.StatusForbidden, "forbidden", "Forbidden.")
}

// Exhausted returns a code-space allocation failure. The whole create may be retried later.
func Exhausted(message string) *KSError {
	return NewWithTagCode(http.StatusInternalServerError, "code-exhausted", message)
}

// Storage returns an underlying store failure. The record is left in its
// last-known-consistent state.
func Storage(message string) *KSError {
	return NewWithTagCode(http.StatusBadGateway, "storage-failure", message)
}

// Configuration returns a missing-deployment-configuration failure.
func Configuration(message string) *KSError {
	return NewWithTagCode(http.StatusInternalServerError, "configuration", message)
}

// Error implements error interface.
func (e *KSError) Error() string {
	return e.FieldError.Message
}
