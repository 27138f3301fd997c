package credential

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredentialFile(t *testing.T, dir string, body map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, "credentials.json")
	b, err := json.Marshal(body)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestStore_LoadTolerant_OnlyRefreshToken(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentialFile(t, dir, map[string]any{"refresh_token": "rt-123"})

	store := NewStore(path, nil)
	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "rt-123", rec.RefreshToken)
	assert.True(t, rec.Valid())
	assert.True(t, rec.Expired(), "no access_token/expiry means always expired")
}

func TestStore_LoadTolerant_AliasedFields(t *testing.T) {
	dir := t.TempDir()
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	path := writeCredentialFile(t, dir, map[string]any{
		"refresh_token": "rt-123",
		"token":         "at-abc", // alias of access_token
		"scope":         "a b c",  // alias of scopes
		"expiry":        future,
	})

	store := NewStore(path, nil)
	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "at-abc", rec.AccessToken)
	assert.Equal(t, []string{"a", "b", "c"}, rec.Scopes)
	assert.False(t, rec.Expired())
}

func TestStore_Load_MissingRefreshToken(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentialFile(t, dir, map[string]any{"access_token": "at-abc"})

	store := NewStore(path, nil)
	_, err := store.Load()
	assert.Error(t, err)
}

func TestStore_SaveRefreshed_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentialFile(t, dir, map[string]any{"refresh_token": "rt-123"})

	store := NewStore(path, nil)
	_, err := store.Load()
	require.NoError(t, err)

	expiry := time.Now().Add(time.Hour).UTC()
	refreshed := &Record{RefreshToken: "rt-123", AccessToken: "at-new", Expiry: &expiry}
	require.NoError(t, store.SaveRefreshed(refreshed))

	reloaded := NewStore(path, nil)
	rec, err := reloaded.Load()
	require.NoError(t, err)
	assert.Equal(t, "at-new", rec.AccessToken)
	assert.False(t, rec.Expired())
}

func TestStore_SaveRefreshed_SkipsWriteWhenFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")

	store := NewStore(path, nil)
	rec := &Record{RefreshToken: "rt-env", AccessToken: "at-env", FromEnv: true}
	require.NoError(t, store.SaveRefreshed(rec))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "env-sourced credentials must not be written to disk")
}

func TestStore_SetProjectID_PersistsAndSkipsWhenNoneActive(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentialFile(t, dir, map[string]any{"refresh_token": "rt-123"})

	store := NewStore(path, nil)
	assert.Error(t, store.SetProjectID("proj-1"), "no active credential yet")

	_, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.SetProjectID("proj-1"))
	assert.Equal(t, "proj-1", store.Active().ProjectID)
}

func TestRecord_Clone_IsIndependent(t *testing.T) {
	expiry := time.Now()
	rec := &Record{RefreshToken: "rt", Scopes: []string{"a"}, Expiry: &expiry}
	clone := rec.Clone()
	clone.Scopes[0] = "mutated"
	*clone.Expiry = expiry.Add(time.Hour)

	assert.Equal(t, "a", rec.Scopes[0])
	assert.Equal(t, expiry, *rec.Expiry)
}
