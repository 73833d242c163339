// Package parsererror defines the error taxonomy for the parsing and
// ingestion pipeline. Malformed row data is logged and skipped by callers;
// only whole-document failures and storage failures reach the caller.
package parsererror

import "fmt"

// UnsupportedDocumentError indicates the document has no extractable text or
// no tabular rows survived filtering. User-facing and non-retryable: the
// remedy is uploading a different file.
type UnsupportedDocumentError struct {
	Reason string
}

func (e *UnsupportedDocumentError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported document: %s", e.Reason)
	}
	return "unsupported document: no tabular data found; only text-based, tabular statements are supported"
}

// InvalidDateError indicates a date string that cannot be normalized to
// YYYYMMDD, including calendar-invalid dates such as February 30th.
type InvalidDateError struct {
	Value string
	Msg   string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("cannot normalize date %q: %s", e.Value, e.Msg)
}

// InvalidAmountError indicates an empty or non-numeric amount or balance.
type InvalidAmountError struct {
	Field string
	Value string
}

func (e *InvalidAmountError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is required to generate a transaction identifier", e.Field)
	}
	return fmt.Sprintf("%s %q is not a valid number", e.Field, e.Value)
}

// NotFoundError indicates a statement or import row that does not exist in
// storage.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// PersistenceError wraps a storage boundary failure. Retryable; during
// ingestion it triggers whole-statement rollback.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
