package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Dispatch errors
	ErrUnknownMethod  = fmt.Errorf("unknown method")
	ErrUnknownSource  = fmt.Errorf("unknown source")
	ErrPluginDetached = fmt.Errorf("plugin is not attached")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Remote errors
	ErrUnexpectedResponse = fmt.Errorf("unexpected response from server")

	// Library errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
