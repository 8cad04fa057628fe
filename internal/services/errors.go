package services

import (
	"errors"
	"fmt"
)

var (
	ErrBatchDecode   = errors.New("batch response could not be decoded")
	ErrEmptyResponse = errors.New("oracle returned no text")
	ErrJobNotFound   = errors.New("audit job not found")
	ErrJobNotReady   = errors.New("audit job is not completed yet")
	ErrResultMissing = errors.New("audit job completed without a result")
)

// ValidationError rejects a batch before any processing starts.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
