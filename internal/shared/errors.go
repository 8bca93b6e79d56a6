package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrNoIDToken        = fmt.Errorf("no id token in response")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Entitlement errors
	ErrNotPro           = fmt.Errorf("pro subscription required")
	ErrQuotaExceeded    = fmt.Errorf("usage quota exhausted")
	ErrPremiumRequired  = fmt.Errorf("premium required")
	ErrPortalNotDefined = fmt.Errorf("customer portal not defined")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTranscriptNotFound = fmt.Errorf("transcription not found")

	// Input validation errors
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrInvalidFileType  = fmt.Errorf("not an audio file")
	ErrTermsNotAccepted = fmt.Errorf("terms of service not accepted")
	ErrEmptyURL         = fmt.Errorf("empty url")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")

	// Rendering and playback errors
	ErrMalformedNotation = fmt.Errorf("malformed notation")
	ErrMalformedMIDI     = fmt.Errorf("malformed note events")
	ErrNothingToPlay     = fmt.Errorf("no note events loaded")
	ErrBusy              = fmt.Errorf("operation already in progress")
)
