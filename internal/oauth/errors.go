package oauth

import "errors"

// Sentinel errors surfaced by Manager, mapped to the gateway's error
// taxonomy (internal/errors) by callers.
var (
	ErrAuthFailed     = errors.New("oauth: authentication failed")
	ErrNoRefreshToken = errors.New("oauth: credential has no refresh_token")
	ErrListenerTimeout = errors.New("oauth: local callback listener timed out")
)
