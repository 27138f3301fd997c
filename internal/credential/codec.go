package credential

import "encoding/json"

// wireRecord is the exact on-disk/env JSON shape. Record itself uses a
// *time.Time for Expiry so zero-value handling stays explicit internally;
// wireRecord renders that as the canonical string form on save.
type wireRecord struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AccessToken  string   `json:"access_token,omitempty"`
	RefreshToken string   `json:"refresh_token"`
	Scopes       []string `json:"scopes,omitempty"`
	TokenURI     string   `json:"token_uri"`
	Expiry       string   `json:"expiry,omitempty"`
	ProjectID    string   `json:"project_id,omitempty"`
	Email        string   `json:"email,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// marshal renders a Record to its canonical on-disk JSON form.
func marshal(r *Record) ([]byte, error) {
	w := wireRecord{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Scopes:       r.Scopes,
		TokenURI:     r.TokenURI,
		ProjectID:    r.ProjectID,
		Email:        r.Email,
		CreatedAt:    canonicalExpiry(r.CreatedAt),
	}
	if r.Expiry != nil {
		w.Expiry = canonicalExpiry(*r.Expiry)
	}
	return json.MarshalIndent(w, "", "  ")
}
