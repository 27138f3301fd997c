package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_RejectsMissingRefreshToken(t *testing.T) {
	_, ok := normalize([]byte(`{"access_token":"at"}`))
	assert.False(t, ok)
}

func TestNormalize_RejectsInvalidJSON(t *testing.T) {
	_, ok := normalize([]byte(`not json`))
	assert.False(t, ok)
}

func TestNormalize_TokenAliasesAccessToken(t *testing.T) {
	rec, ok := normalize([]byte(`{"refresh_token":"rt","token":"at-alias"}`))
	require.True(t, ok)
	assert.Equal(t, "at-alias", rec.AccessToken)
}

func TestNormalize_AccessTokenPreferredOverToken(t *testing.T) {
	rec, ok := normalize([]byte(`{"refresh_token":"rt","access_token":"at-primary","token":"at-alias"}`))
	require.True(t, ok)
	assert.Equal(t, "at-primary", rec.AccessToken)
}

func TestNormalize_ScopeStringAliasesScopesArray(t *testing.T) {
	rec, ok := normalize([]byte(`{"refresh_token":"rt","scope":"a b  c"}`))
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, rec.Scopes)
}

func TestNormalize_ScopesArrayPreferredOverScope(t *testing.T) {
	rec, ok := normalize([]byte(`{"refresh_token":"rt","scopes":["x","y"],"scope":"a b"}`))
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, rec.Scopes)
}

func TestNormalize_ExpiryFormats(t *testing.T) {
	cases := []string{
		"2026-07-31T12:00:00Z",
		"2026-07-31T12:00:00+00:00",
		"2026-07-31T12:00:00.123456",
		"2026-07-31T12:00:00",
	}
	for _, exp := range cases {
		rec, ok := normalize([]byte(`{"refresh_token":"rt","expiry":"` + exp + `"}`))
		require.True(t, ok, exp)
		require.NotNil(t, rec.Expiry, exp)
		assert.Equal(t, 2026, rec.Expiry.Year(), exp)
	}
}

func TestNormalize_UnparseableExpiryLeavesNilExpiry(t *testing.T) {
	rec, ok := normalize([]byte(`{"refresh_token":"rt","expiry":"not-a-date"}`))
	require.True(t, ok)
	assert.Nil(t, rec.Expiry)
}

func TestNormalize_DefaultsCreatedAtWhenAbsent(t *testing.T) {
	rec, ok := normalize([]byte(`{"refresh_token":"rt"}`))
	require.True(t, ok)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), rec.CreatedAt, time.Minute)
}

func TestCanonicalExpiry_FormatsAsUTCZulu(t *testing.T) {
	loc := time.FixedZone("test", 3600)
	tm := time.Date(2026, 7, 31, 10, 0, 0, 0, loc)
	assert.Equal(t, "2026-07-31T09:00:00Z", canonicalExpiry(tm))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", "  "))
}
