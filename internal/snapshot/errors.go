package snapshot

import (
	"errors"
	"fmt"

	"github.com/roach88/replica/internal/wire"
)

// DecodeError reports a snapshot that could not be framed. When ReadState
// returns one, the prune step was skipped.
type DecodeError struct {
	// Code identifies the error category.
	Code DecodeErrorCode

	// Message is a human-readable description.
	Message string

	// Offset is the buffer position where decoding stopped.
	Offset int

	// EntityID is the node being decoded, if any.
	EntityID uint32

	// Err is the underlying cause.
	Err error
}

// DecodeErrorCode categorizes decode errors.
type DecodeErrorCode string

const (
	// ErrCodeTruncated indicates the buffer ended inside a field.
	ErrCodeTruncated DecodeErrorCode = "TRUNCATED"

	// ErrCodeMalformed indicates bytes that cannot be a valid snapshot.
	ErrCodeMalformed DecodeErrorCode = "MALFORMED"

	// ErrCodeEntityCreate indicates a node could not be created.
	ErrCodeEntityCreate DecodeErrorCode = "ENTITY_CREATE_FAILED"
)

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.EntityID != 0 {
		return fmt.Sprintf("%s: %s (entity=%d, offset=%d)", e.Code, e.Message, e.EntityID, e.Offset)
	}
	return fmt.Sprintf("%s: %s (offset=%d)", e.Code, e.Message, e.Offset)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsTruncated returns true if err is a DecodeError for a short buffer.
func IsTruncated(err error) bool {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Code == ErrCodeTruncated
	}
	return false
}

// IsMalformed returns true if err is a DecodeError for invalid bytes.
func IsMalformed(err error) bool {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Code == ErrCodeMalformed
	}
	return false
}

// decodeError wraps a wire error with the entity context.
func decodeError(err error, entityID uint32, msg string) error {
	de := &DecodeError{Code: ErrCodeMalformed, Message: msg, EntityID: entityID, Err: err}
	if errors.Is(err, wire.ErrTruncated) {
		de.Code = ErrCodeTruncated
	}
	var we *wire.Error
	if errors.As(err, &we) {
		de.Offset = we.Offset
	}
	return de
}
