// Package errs defines the error taxonomy shared across the reconciliation
// pipeline. Sentinels allow callers to branch on failure class with errors.Is
// while typed errors carry the context needed for logs and run summaries.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the reconciliation pipeline.
var (
	// ErrDateColumnNotFound indicates no candidate column parsed as dates
	// at the required confidence.
	ErrDateColumnNotFound = errors.New("date column not found")

	// ErrInsufficientValidDates indicates the chosen date column held fewer
	// parseable dates than the configured minimum.
	ErrInsufficientValidDates = errors.New("insufficient valid dates")

	// ErrSourceUnavailable indicates the observation source failed after the
	// adapter exhausted its own retry policy.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited indicates the observation source throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrSheetNotFound indicates the template's sheet (or workbook) does not
	// exist in storage.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrNoEligibleDates indicates the completeness policy selected zero
	// dates; the template reports zero rows written.
	ErrNoEligibleDates = errors.New("no eligible dates")

	// ErrOverwriteRangeAmbiguous indicates an overwrite would shrink the
	// existing table without explicit truncation authorization.
	ErrOverwriteRangeAmbiguous = errors.New("overwrite range ambiguous")

	// ErrTemplateNotFound indicates an unknown template name was requested.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrRunNotFound indicates an unknown or no-longer-active run id.
	ErrRunNotFound = errors.New("run not found")
)

// SourceError represents a failed call against an observation source.
type SourceError struct {
	Provider   string
	SeriesID   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s: series %s: status %d: %s", e.Provider, e.SeriesID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("source %s: series %s: %s", e.Provider, e.SeriesID, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is maps throttling responses to ErrRateLimited and server-side failures to
// ErrSourceUnavailable so callers never inspect status codes themselves.
func (e *SourceError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 || e.StatusCode == 0 {
		return target == ErrSourceUnavailable
	}
	return false
}

// NewSourceError creates a SourceError for an HTTP-level failure.
func NewSourceError(provider, seriesID string, statusCode int, message string) *SourceError {
	return &SourceError{
		Provider:   provider,
		SeriesID:   seriesID,
		StatusCode: statusCode,
		Message:    message,
	}
}

// WrapSourceError creates a SourceError around a transport error.
func WrapSourceError(provider, seriesID string, err error) *SourceError {
	return &SourceError{
		Provider: provider,
		SeriesID: seriesID,
		Message:  err.Error(),
		Err:      err,
	}
}

// AuditError represents a failed audit of one sheet.
type AuditError struct {
	Sheet  string
	Column string
	Err    error
}

// Error implements the error interface.
func (e *AuditError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("audit sheet %q column %q: %v", e.Sheet, e.Column, e.Err)
	}
	return fmt.Sprintf("audit sheet %q: %v", e.Sheet, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *AuditError) Unwrap() error {
	return e.Err
}

// TruncationError details an overwrite that would drop rows beyond the newly
// written range.
type TruncationError struct {
	Sheet        string
	ExistingRows int
	WritingRows  int
}

// Error implements the error interface.
func (e *TruncationError) Error() string {
	return fmt.Sprintf("overwrite of sheet %q writes %d rows over %d existing; truncation not authorized",
		e.Sheet, e.WritingRows, e.ExistingRows)
}

// Is implements errors.Is support.
func (e *TruncationError) Is(target error) bool {
	return target == ErrOverwriteRangeAmbiguous
}

// IsDateColumnNotFound checks whether err is a date-column detection failure.
func IsDateColumnNotFound(err error) bool {
	return errors.Is(err, ErrDateColumnNotFound)
}

// IsInsufficientValidDates checks whether err is a minimum-date-count failure.
func IsInsufficientValidDates(err error) bool {
	return errors.Is(err, ErrInsufficientValidDates)
}

// IsSourceUnavailable checks whether err is a source availability failure.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsRateLimited checks whether err is a throttling failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsSheetNotFound checks whether err is a missing sheet or workbook.
func IsSheetNotFound(err error) bool {
	return errors.Is(err, ErrSheetNotFound)
}

// IsNoEligibleDates checks whether err reports an empty eligible date set.
func IsNoEligibleDates(err error) bool {
	return errors.Is(err, ErrNoEligibleDates)
}

// IsOverwriteRangeAmbiguous checks whether err is an unauthorized truncation.
func IsOverwriteRangeAmbiguous(err error) bool {
	return errors.Is(err, ErrOverwriteRangeAmbiguous)
}

// IsTemplateNotFound checks whether err is an unknown-template failure.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsRunNotFound checks whether err is an unknown-run failure.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
