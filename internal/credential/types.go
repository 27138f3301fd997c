// Package credential owns the single active OAuth credential: its on-disk
// representation, normalization rules, and the in-memory store every other
// component reads through.
package credential

import (
	"strings"
	"time"
)

// DefaultExpirySkew is how far ahead of the real expiry a credential is
// already considered expired, so a refresh has time to land before the
// upstream would reject the token. Spec allows up to 60s; we use the full
// allowance.
const DefaultExpirySkew = 60 * time.Second

// Record is the on-disk JSON shape of a credential, matching the fields the
// gateway persists: client id/secret, tokens, scopes, token endpoint,
// expiry, resolved project, owning email and creation time.
type Record struct {
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token"`
	Scopes       []string   `json:"scopes,omitempty"`
	TokenURI     string     `json:"token_uri"`
	Expiry       *time.Time `json:"expiry,omitempty"`
	ProjectID    string     `json:"project_id,omitempty"`
	Email        string     `json:"email,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	// FromEnv is process-local: true when this record was loaded from
	// GEMINI_CREDENTIALS rather than the file. It is never serialized.
	FromEnv bool `json:"-"`
}

// Valid reports whether the record carries enough to be useful: a
// refresh_token is mandatory, everything else can be recovered via refresh.
func (r *Record) Valid() bool {
	return r != nil && strings.TrimSpace(r.RefreshToken) != ""
}

// Expired reports whether the access token must not be used without a
// refresh first, applying DefaultExpirySkew.
func (r *Record) Expired() bool {
	if r == nil || r.AccessToken == "" || r.Expiry == nil {
		return true
	}
	return !time.Now().Add(DefaultExpirySkew).Before(*r.Expiry)
}

// Clone returns a deep-enough copy safe to hand to a reader without risking
// a concurrent mutation of the original record's slices/pointer fields.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Expiry != nil {
		e := *r.Expiry
		cp.Expiry = &e
	}
	if r.Scopes != nil {
		cp.Scopes = append([]string(nil), r.Scopes...)
	}
	return &cp
}
