package errors

import "errors"

// Domain errors
var (
	// Scan errors
	ErrFetchFailed   = errors.New("failed to fetch URL")
	ErrInvalidTarget = errors.New("invalid target URL")

	// History errors
	ErrScanNotFound = errors.New("scan not found")

	// Report errors
	ErrNoResultSource    = errors.New("no result source: provide a results JSON file or --scan-id")
	ErrUnsupportedFormat = errors.New("unsupported report format")
)
