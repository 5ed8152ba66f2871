package permission

import "errors"

// Recoverable error values surfaced to users. Callers branch with errors.Is;
// anything else coming out of the package is an internal failure.
var (
	ErrPluginNotFound    = errors.New("plugin not found")
	ErrCommandNotFound   = errors.New("command not found")
	ErrInvalidPermission = errors.New(`permission must be "admin" or "member"`)
	ErrEmptyAlias        = errors.New("alias must not be empty")
	ErrEmptyName         = errors.New("name must not be empty")
)
