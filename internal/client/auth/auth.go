// Package auth provides credential providers: a Google OAuth device-flow
// provider for real archive access and a simulated one that keeps the
// client usable without any authorization.
package auth

import (
	"errors"
)

var (
	ErrConsentDenied = errors.New("authorization was denied")
	ErrRevokeFailed  = errors.New("token revocation failed")
)

// PromptConsent forces the consent screen on every login.
const PromptConsent = "consent"

// DefaultScopes grants access to files created by the app plus the basic
// profile.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/drive.file",
	"email",
	"profile",
}
