package shared

import "fmt"

var (
	// Library errors
	ErrValidation  = fmt.Errorf("validation failed")
	ErrNotFound    = fmt.Errorf("not found")
	ErrDuplicate   = fmt.Errorf("duplicate entry")
	ErrPersistence = fmt.Errorf("persistence failed")

	ErrPlaylistNotFound       = fmt.Errorf("playlist %w", ErrNotFound)
	ErrTrackAlreadyInPlaylist = fmt.Errorf("track already in playlist: %w", ErrDuplicate)

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
