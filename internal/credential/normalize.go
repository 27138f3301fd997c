package credential

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// expiryLayouts are the ISO-ish forms accepted on load; canonical output on
// save is always RFC3339 ("Z" UTC).
var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// normalize parses a raw JSON credential document tolerantly: it accepts
// `access_token` as an alias for `token`, a space-delimited `scope` string as
// an alias for a `scopes` array, and several expiry string forms. Returns
// nil, false if the document doesn't even carry a refresh_token.
func normalize(raw []byte) (*Record, bool) {
	if !gjson.ValidBytes(raw) {
		return nil, false
	}
	root := gjson.ParseBytes(raw)

	refresh := firstNonEmpty(root.Get("refresh_token").String())
	if refresh == "" {
		return nil, false
	}

	rec := &Record{
		ClientID:     root.Get("client_id").String(),
		ClientSecret: root.Get("client_secret").String(),
		RefreshToken: refresh,
		TokenURI:     root.Get("token_uri").String(),
		ProjectID:    root.Get("project_id").String(),
		Email:        root.Get("email").String(),
	}

	rec.AccessToken = firstNonEmpty(root.Get("access_token").String(), root.Get("token").String())

	if scopes := root.Get("scopes"); scopes.IsArray() {
		for _, s := range scopes.Array() {
			rec.Scopes = append(rec.Scopes, s.String())
		}
	} else if scope := root.Get("scope"); scope.Exists() && scope.String() != "" {
		rec.Scopes = strings.Fields(scope.String())
	}

	if exp := root.Get("expiry"); exp.Exists() && exp.String() != "" {
		if t, ok := parseExpiry(exp.String()); ok {
			rec.Expiry = &t
		}
	}

	if created := root.Get("created_at"); created.Exists() && created.String() != "" {
		if t, ok := parseExpiry(created.String()); ok {
			rec.CreatedAt = t
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	return rec, true
}

func parseExpiry(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	// Accept "...+00:00" Python-style offsets as well as "...Z".
	normalized := v
	if strings.HasSuffix(normalized, "+00:00") {
		normalized = strings.TrimSuffix(normalized, "+00:00") + "Z"
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// canonicalExpiry formats an expiry the way it is always written back to
// disk: "YYYY-MM-DDTHH:MM:SSZ".
func canonicalExpiry(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
