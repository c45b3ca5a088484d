package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateDocument     = errors.New("duplicate document id")
	ErrEmptyCorpus           = errors.New("empty corpus")
	ErrSealed                = errors.New("posting store is sealed")
	ErrAlreadySealed         = errors.New("posting store already sealed")
	ErrNotSealed             = errors.New("posting store is not sealed")
	ErrUnknownDocument       = errors.New("unknown document")
	ErrDocumentCountMismatch = errors.New("document count mismatch")
	ErrMalformedRecord       = errors.New("malformed record")
)

// MalformedRecordError describes an input record that was skipped.
type MalformedRecordError struct {
	Source string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is match ErrMalformedRecord as well as the cause.
func (e *MalformedRecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedRecord}
	}
	return []error{ErrMalformedRecord, e.Err}
}
