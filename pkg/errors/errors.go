// Package errors defines the typed failures surfaced by notification processing.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
)

type ExtractionErrorKind string

const (
	MissingField    ExtractionErrorKind = "missing_field"
	UnparseableDate ExtractionErrorKind = "unparseable_date"
)

// ExtractionError reports a required field that is absent or a date that cannot be read.
type ExtractionError struct {
	Kind  ExtractionErrorKind
	Field string
	Value string
}

func NewMissingFieldError(field string) *ExtractionError {
	return &ExtractionError{Kind: MissingField, Field: field}
}

func NewUnparseableDateError(field, value string) *ExtractionError {
	return &ExtractionError{Kind: UnparseableDate, Field: field, Value: value}
}

func (e *ExtractionError) Error() string {
	if e.Kind == UnparseableDate {
		return fmt.Sprintf("unparseable date in field '%s': %q", e.Field, e.Value)
	}
	return fmt.Sprintf("missing required field '%s'", e.Field)
}

func (e *ExtractionError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).
		AddMetaValue("kind", string(e.Kind)).
		AddMetaValue("field", e.Field)
}

// UnsupportedDocumentFormatError is returned when a document cannot be decoded to text.
// ReaderUnavailable marks formats that are known but have no reader in this build.
type UnsupportedDocumentFormatError struct {
	Extension         string
	ReaderUnavailable bool
}

func (e *UnsupportedDocumentFormatError) Error() string {
	if e.ReaderUnavailable {
		return fmt.Sprintf("no reader available for '%s' documents", e.Extension)
	}
	return fmt.Sprintf("unsupported document format '%s'", e.Extension)
}

func (e *UnsupportedDocumentFormatError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnsupportedMediaType, e.Error()).
		AddMetaValue("extension", e.Extension).
		AddMetaValue("reader_unavailable", strconv.FormatBool(e.ReaderUnavailable))
}

// EmptyDocumentError is returned when decoded text is empty or whitespace.
type EmptyDocumentError struct {
	Name string
}

func (e *EmptyDocumentError) Error() string {
	if e.Name == "" {
		return "document is empty"
	}
	return fmt.Sprintf("document '%s' is empty", e.Name)
}

func (e *EmptyDocumentError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).AddMetaValue("document", e.Name)
}

// StoreUnavailableError is a transient persistence failure. Callers may retry with backoff.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func NewStoreUnavailableError(op string, err error) *StoreUnavailableError {
	return &StoreUnavailableError{Op: op, Err: err}
}

func (e *StoreUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store unavailable during %s", e.Op)
	}
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

func (e *StoreUnavailableError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusServiceUnavailable, "store unavailable, retry later").AddMetaValue("op", e.Op)
}

// DuplicateRaceError is raised when an insert hits the (external_id, carrier_id) constraint.
type DuplicateRaceError struct {
	ExternalID string
	CarrierID  string
	Err        error
}

func (e *DuplicateRaceError) Error() string {
	return fmt.Sprintf("task (%s, %s) was created concurrently", e.ExternalID, e.CarrierID)
}

func (e *DuplicateRaceError) Unwrap() error {
	return e.Err
}

func (e *DuplicateRaceError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, e.Error()).
		AddMetaValue("external_id", e.ExternalID).
		AddMetaValue("carrier_id", e.CarrierID)
}

func IsExtractionError(err error) bool {
	var target *ExtractionError
	return stderrors.As(err, &target)
}

func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return stderrors.As(err, &target)
}

func IsDuplicateRace(err error) bool {
	var target *DuplicateRaceError
	return stderrors.As(err, &target)
}

// ToHTTPError maps a processing error onto an httperror for the API layer.
func ToHTTPError(err error) error {
	if err == nil {
		return nil
	}

	var extractionErr *ExtractionError
	if stderrors.As(err, &extractionErr) {
		return extractionErr.ToHTTPError()
	}
	var formatErr *UnsupportedDocumentFormatError
	if stderrors.As(err, &formatErr) {
		return formatErr.ToHTTPError()
	}
	var emptyErr *EmptyDocumentError
	if stderrors.As(err, &emptyErr) {
		return emptyErr.ToHTTPError()
	}
	var raceErr *DuplicateRaceError
	if stderrors.As(err, &raceErr) {
		return raceErr.ToHTTPError()
	}
	var storeErr *StoreUnavailableError
	if stderrors.As(err, &storeErr) {
		return storeErr.ToHTTPError()
	}
	if httperror.IsHTTPError(err) {
		return err
	}
	return httperror.NewHTTPError(http.StatusInternalServerError, "internal error")
}
