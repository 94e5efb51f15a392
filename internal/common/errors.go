package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// upload specific errors
	ErrorStorageNotConfigured = errors.New("storage directory is not configured")
	ErrorUnreadableDocument   = errors.New("unreadable document")
	ErrorDocumentTooLarge     = errors.New("document exceeds upload limits")
	ErrorExtractionTimeout    = errors.New("document extraction timed out")

	// storage specific errors
	ErrorPathEscape = errors.New("stored file path escapes storage root")

	// issuance specific errors
	ErrorMissingFields = errors.New("missing required fields")
)
