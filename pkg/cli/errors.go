package cli

import "errors"

// Common CLI errors
var (
	ErrValidationFailed = errors.New("scenario validation failed")
	ErrNoScenarios      = errors.New("no scenarios found")
)
