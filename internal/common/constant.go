// Package common contains shared constants and sentinel errors used across
// the cheat-sheet service components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on HTTP requests.
	AuthorizationHeaderName = "Authorization"

	// InstructorHeaderName is the upstream trust signal for privileged callers.
	// It is honoured only when the server is configured to trust it.
	InstructorHeaderName = "X-Is-Instructor"

	// CheatsheetsDirEnv names the environment variable holding the storage root.
	CheatsheetsDirEnv = "CHEATSHEETS_DIR"
)
