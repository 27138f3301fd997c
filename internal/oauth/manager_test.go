package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-gateway/internal/credential"
)

func newStubTokenServer(t *testing.T, accessToken, refreshToken string, expiresIn int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   expiresIn,
		}
		if refreshToken != "" {
			resp["refresh_token"] = refreshToken
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestManager_Refresh_Success(t *testing.T) {
	srv := newStubTokenServer(t, "at-new", "", 3600)
	mgr := NewManager("client-id", "client-secret", "https://auth.example/authorize", srv.URL, []string{"scope-a"}, 0, nil)

	rec := &credential.Record{RefreshToken: "rt-old"}
	updated, err := mgr.Refresh(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "at-new", updated.AccessToken)
	assert.Equal(t, "rt-old", updated.RefreshToken, "refresh token is kept when the response doesn't rotate it")
	require.NotNil(t, updated.Expiry)
	assert.False(t, updated.Expiry.IsZero())
}

func TestManager_Refresh_RotatesRefreshTokenWhenReturned(t *testing.T) {
	srv := newStubTokenServer(t, "at-new", "rt-new", 3600)
	mgr := NewManager("client-id", "client-secret", "https://auth.example/authorize", srv.URL, []string{"scope-a"}, 0, nil)

	rec := &credential.Record{RefreshToken: "rt-old"}
	updated, err := mgr.Refresh(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "rt-new", updated.RefreshToken)
}

func TestManager_Refresh_UsesRecordTokenURIWhenSet(t *testing.T) {
	srv := newStubTokenServer(t, "at-new", "", 3600)
	mgr := NewManager("client-id", "client-secret", "https://auth.example/authorize", "https://wrong.example/token", []string{"scope-a"}, 0, nil)

	rec := &credential.Record{RefreshToken: "rt-old", TokenURI: srv.URL}
	updated, err := mgr.Refresh(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "at-new", updated.AccessToken)
}

func TestManager_Refresh_RejectsRecordWithoutRefreshToken(t *testing.T) {
	mgr := NewManager("client-id", "client-secret", "https://auth.example/authorize", "https://token.example", nil, 0, nil)
	_, err := mgr.Refresh(context.Background(), &credential.Record{})
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestManager_Refresh_NilRecord(t *testing.T) {
	mgr := NewManager("client-id", "client-secret", "https://auth.example/authorize", "https://token.example", nil, 0, nil)
	_, err := mgr.Refresh(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestManager_Refresh_EndpointErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
	}))
	defer srv.Close()

	mgr := NewManager("client-id", "client-secret", "https://auth.example/authorize", srv.URL, nil, 0, nil)
	_, err := mgr.Refresh(context.Background(), &credential.Record{RefreshToken: "rt-old"})
	assert.ErrorIs(t, err, ErrAuthFailed)
}
