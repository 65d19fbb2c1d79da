package persistence

import (
	"errors"
	"fmt"
)

// ErrCorruptRecord is matched by every *CorruptRecordError.
var ErrCorruptRecord = errors.New("corrupt record")

// CorruptRecordError reports a persisted record that cannot be loaded.
type CorruptRecordError struct {
	Reason string
	Err    error
}

func (e *CorruptRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt record: %s: %v", e.Reason, e.Err)
	}
	return "corrupt record: " + e.Reason
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}

func corrupt(reason string, err error) error {
	return &CorruptRecordError{Reason: reason, Err: err}
}

func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptRecord)
}

// WriteFailure reports a save that could not be written to storage.
type WriteFailure struct {
	Slot string
	Err  error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("failed to write save slot %s: %v", e.Slot, e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }

func IsWriteFailure(err error) bool {
	var failure *WriteFailure
	return errors.As(err, &failure)
}
