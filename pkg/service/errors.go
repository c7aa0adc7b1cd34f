package service

import (
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
)

// ErrStoreUnavailable marks failures of the trace store. The cause is kept for logging but
// never shown to callers.
var ErrStoreUnavailable = errors.New("trace store unavailable")

// ErrNotFound is returned when no trace matches the requested id.
var ErrNotFound = storage.ErrNotFound

// StoreError wraps a store failure for one use case.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

const (
	msgInvalidQuery = "Invalid query parameters"
	msgNotFound     = "Execution log not found"
	msgIDRequired   = "Execution log ID is required"
	msgInternal     = "Internal server error"
)

// fail converts err into an error envelope. Validation problems and not-found are reported
// as they are; anything else is logged and replaced by a generic message.
func fail[T any](logger Logger, op, message string, err error) Envelope[T] {
	var verr *query.ValidationError
	switch {
	case errors.As(err, &verr):
		return Envelope[T]{Status: StatusError, Message: msgInvalidQuery, Errors: verr.Problems, err: err}
	case errors.Is(err, storage.ErrNotFound):
		return Envelope[T]{Status: StatusError, Message: msgNotFound, Errors: []string{msgNotFound}, err: err}
	}
	logger.Errorf("%s failed: %v", op, err)
	return Envelope[T]{
		Status:  StatusError,
		Message: message,
		Errors:  []string{msgInternal},
		err:     &StoreError{Op: op, Err: err},
	}
}
