package models

import "strings"

// SimulatedTokenPrefix marks credentials fabricated locally when no real
// authorization was granted.
const SimulatedTokenPrefix = "G-DRIVE-AUTH-"

// Credential is an opaque bearer token. Expiry is provider-managed and only
// shows up as an error when the token is used.
type Credential struct {
	Token string
}

func NewCredential(token string) Credential {
	return Credential{Token: token}
}

func (c Credential) IsZero() bool {
	return c.Token == ""
}

func (c Credential) IsSimulated() bool {
	return strings.HasPrefix(c.Token, SimulatedTokenPrefix)
}

// IsLive reports whether the token may be used against the real remote API.
func (c Credential) IsLive() bool {
	return !c.IsZero() && !c.IsSimulated()
}

// String never prints the token itself.
func (c Credential) String() string {
	switch {
	case c.IsZero():
		return "credential(none)"
	case c.IsSimulated():
		return "credential(simulated)"
	default:
		return "credential(live)"
	}
}

// Profile holds the basic identity fields returned by the credential provider.
type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	PictureURL string `json:"picture"`
}

// User is the session identity persisted locally under the user key.
type User struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PictureURL  string `json:"picture"`
	IsLoggedIn  bool   `json:"isLoggedIn"`
	AccessToken string `json:"accessToken,omitempty"`
}

// LoggedOut is the default, empty user.
func LoggedOut() User {
	return User{}
}

func NewLoggedInUser(p Profile, cred Credential) User {
	return User{
		Name:        p.Name,
		Email:       p.Email,
		PictureURL:  p.PictureURL,
		IsLoggedIn:  true,
		AccessToken: cred.Token,
	}
}

func (u User) Credential() Credential {
	return Credential{Token: u.AccessToken}
}
