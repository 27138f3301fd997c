// Package oauth acquires and refreshes Google OAuth2 credentials for the
// gateway's single active identity.
package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"gemini-gateway/internal/credential"
)

// Manager drives the interactive authorization-code flow and refresh-token
// exchanges against a Google OAuth2 endpoint, built on top of
// golang.org/x/oauth2's Config/TokenSource so the grant mechanics (token
// parsing, expiry bookkeeping, refresh retries) aren't reinvented.
type Manager struct {
	clientID     string
	clientSecret string
	authURI      string
	tokenURI     string
	scopes       []string
	callbackPort int
	httpClient   *http.Client
	log          *logrus.Entry
}

// NewManager constructs a Manager bound to a specific OAuth client identity
// and token endpoint.
func NewManager(clientID, clientSecret, authURI, tokenURI string, scopes []string, callbackPort int, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURI:      authURI,
		tokenURI:     tokenURI,
		scopes:       scopes,
		callbackPort: callbackPort,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}
}

// oauth2Config builds an *oauth2.Config for clientID/clientSecret/tokenURI,
// falling back to the manager's own identity for anything blank (a
// credential record loaded without its own client_id/client_secret/token_uri
// uses the gateway's default OAuth client, same as the official CLI does).
func (m *Manager) oauth2Config(clientID, clientSecret, tokenURI, redirectURI string) *oauth2.Config {
	if clientID == "" {
		clientID = m.clientID
	}
	if clientSecret == "" {
		clientSecret = m.clientSecret
	}
	if tokenURI == "" {
		tokenURI = m.tokenURI
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: m.authURI, TokenURL: tokenURI},
		RedirectURL:  redirectURI,
		Scopes:       m.scopes,
	}
}

func (m *Manager) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// RunInteractiveFlow opens a one-shot local HTTP listener on the configured
// callback port, logs the authorization URL for the operator to open, and
// blocks until a code arrives or the 5-minute wall-clock limit expires.
func (m *Manager) RunInteractiveFlow(ctx context.Context) (*credential.Record, error) {
	redirectURI := fmt.Sprintf("http://localhost:%d", m.callbackPort)
	cfg := m.oauth2Config(m.clientID, m.clientSecret, m.tokenURI, redirectURI)

	authURL := cfg.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"), oauth2.SetAuthURLParam("include_granted_scopes", "true"))
	m.log.WithField("url", authURL).Info("open this URL to authorize the gateway")

	code, err := m.awaitCallback(ctx, m.callbackPort)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	tok, err := cfg.Exchange(m.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token endpoint response missing access_token/refresh_token", ErrAuthFailed)
	}

	now := time.Now().UTC()
	expiry := tok.Expiry.UTC()
	return &credential.Record{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       m.scopes,
		TokenURI:     m.tokenURI,
		Expiry:       &expiry,
		CreatedAt:    now,
	}, nil
}

// awaitCallback starts a one-shot server that captures the first
// `code=`/`error=` query parameter posted to the redirect URI, then shuts
// itself down. Bounded to a 5-minute wall clock per spec.
func (m *Manager) awaitCallback(ctx context.Context, port int) (string, error) {
	type result struct {
		code string
		err  error
	}
	resultCh := make(chan result, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errStr := q.Get("error"); errStr != "" {
			fmt.Fprintln(w, "Authorization failed, you may close this tab.")
			select {
			case resultCh <- result{err: fmt.Errorf("authorization server returned error=%s", errStr)}:
			default:
			}
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authorization complete, you may close this tab.")
		select {
		case resultCh <- result{code: code}:
		default:
		}
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case resultCh <- result{err: err}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	select {
	case res := <-resultCh:
		return res.code, res.err
	case <-timeout.C:
		return "", ErrListenerTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Refresh exchanges rec's refresh_token for a new access token. On success
// it returns an updated clone of rec; on failure rec is untouched.
func (m *Manager) Refresh(ctx context.Context, rec *credential.Record) (*credential.Record, error) {
	if rec == nil || strings.TrimSpace(rec.RefreshToken) == "" {
		return nil, ErrNoRefreshToken
	}

	cfg := m.oauth2Config(rec.ClientID, rec.ClientSecret, rec.TokenURI, "")
	// A token with a zero Expiry is treated as already-expired by
	// oauth2.TokenSource, forcing the refresh on first Token() call.
	stale := &oauth2.Token{RefreshToken: rec.RefreshToken}
	src := cfg.TokenSource(m.withHTTPClient(ctx), stale)

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response missing access_token", ErrAuthFailed)
	}

	updated := rec.Clone()
	updated.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	expiry := tok.Expiry.UTC()
	if tok.Expiry.IsZero() {
		expiry = time.Now().UTC().Add(time.Hour)
	}
	updated.Expiry = &expiry
	return updated, nil
}
