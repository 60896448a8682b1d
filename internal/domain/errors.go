package domain

import "errors"

var (
	// ErrSourceUnavailable marks a retryable warehouse connectivity failure.
	ErrSourceUnavailable = errors.New("warehouse source unavailable")

	// ErrNoSnapshot is returned by reads before any analysis has completed.
	ErrNoSnapshot = errors.New("analysis has never completed")

	// ErrAnalysisInProgress is returned when a run is triggered while another is in flight.
	ErrAnalysisInProgress = errors.New("analysis already in progress")

	// ErrInvalidPeriod rejects stock period overrides outside 1..365 days.
	ErrInvalidPeriod = errors.New("invalid stock period")

	ErrNotFound = errors.New("not found")

	ErrInvalidInput = errors.New("invalid input")
)
