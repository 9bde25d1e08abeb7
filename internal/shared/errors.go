package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Credential lifecycle errors
	ErrAuthRequired     = fmt.Errorf("authorization required")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrStoreUnavailable = fmt.Errorf("token store unavailable")

	// Gateway errors
	ErrTransient = fmt.Errorf("transient network failure")
	ErrRemote    = fmt.Errorf("spotify API error")

	// Business outcomes surfaced as errors
	ErrNotFound           = fmt.Errorf("not found")
	ErrInsufficientData   = fmt.Errorf("not enough submissions to start a round")
	ErrInsufficientDecoys = fmt.Errorf("not enough unused submissions for decoys")
	ErrNoActiveRound      = fmt.Errorf("no active round")
	ErrPollClosed         = fmt.Errorf("poll is closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
