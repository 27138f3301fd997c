// Package gateway wires the credential, oauth, project, onboarding, and
// upstream transport collaborators into the single sequence every public
// handler needs before it can send a request to Code Assist: make sure the
// active credential is valid, resolve the project id, and make sure that
// (credential, project) pair is onboarded (spec.md 4.1/5).
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gemini-gateway/internal/config"
	"gemini-gateway/internal/credential"
	"gemini-gateway/internal/oauth"
	"gemini-gateway/internal/onboard"
	"gemini-gateway/internal/project"
	"gemini-gateway/internal/upstream/codeassist"
)

// ErrNoCredential is returned when the store has no usable credential at
// all (no refresh_token anywhere).
var ErrNoCredential = errors.New("gateway: no usable credential loaded")

// Core is the single instance every HTTP handler in the process shares. Its
// collaborators already hold their own internal locks; Core adds only the
// single-flight guard around refreshing the shared access token so N
// concurrent requests against an expired credential trigger one refresh,
// not N (spec.md 5).
type Core struct {
	cfg       *config.Config
	creds     *credential.Store
	oauthMgr  *oauth.Manager
	resolver  *project.Resolver
	onboarder *onboard.Onboarder
	upstream  *codeassist.Client
	log       *logrus.Entry

	refreshMu sync.Mutex
}

// New constructs a Core from a loaded Config, wiring every collaborator
// package with the durations/limits it specifies.
func New(cfg *config.Config, log *logrus.Entry) (*Core, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	store := credential.NewStore(cfg.CredentialFilePath, log.WithField("component", "credential"))
	if _, err := store.Load(); err != nil {
		log.WithError(err).Warn("no credential loaded at startup; waiting for one to appear or be added via the CLI")
	}
	if err := store.Watch(nil); err != nil {
		log.WithError(err).Warn("could not watch credential file for external changes; restart the process after running gemini-auth add")
	}

	mgr := oauth.NewManager(cfg.ClientID, cfg.ClientSecret, cfg.AuthURI, cfg.TokenURI, cfg.Scopes, cfg.OAuthCallbackPort, log.WithField("component", "oauth"))
	resolver := project.NewResolver(log.WithField("component", "project"))
	onboarder := onboard.New(
		time.Duration(cfg.OnboardPollIntervalSec*float64(time.Second)),
		time.Duration(cfg.OnboardMaxWaitSec*float64(time.Second)),
		log.WithField("component", "onboard"),
	)
	upstream := codeassist.New(cfg)

	return &Core{
		cfg:       cfg,
		creds:     store,
		oauthMgr:  mgr,
		resolver:  resolver,
		onboarder: onboarder,
		upstream:  upstream,
		log:       log,
	}, nil
}

// Config exposes the loaded configuration to callers that need it (e.g. for
// the CORS allowlist or port at server-build time).
func (c *Core) Config() *config.Config { return c.cfg }

// CredentialStore exposes the store so cmd/gemini-auth and the interactive
// bootstrap path can add/list/remove credentials.
func (c *Core) CredentialStore() *credential.Store { return c.creds }

// OAuthManager exposes the manager for the interactive bootstrap flow.
func (c *Core) OAuthManager() *oauth.Manager { return c.oauthMgr }

// Close releases the collaborators that hold OS resources across the
// process lifetime (currently: the credential file watcher).
func (c *Core) Close() error {
	return c.creds.Close()
}

// Ready is the outcome of EnsureReady: a bearer token and project id every
// upstream call can be made with.
type Ready struct {
	AccessToken string
	ProjectID   string
}

// EnsureReady performs the full per-request readiness sequence: refresh the
// active credential if its access token is expired, resolve the project id,
// and make sure the (credential, project) pair is onboarded. It is safe to
// call concurrently; refreshes are single-flighted.
func (c *Core) EnsureReady(ctx context.Context) (Ready, error) {
	rec := c.creds.Active()
	if !rec.Valid() {
		return Ready{}, ErrNoCredential
	}

	if rec.Expired() {
		refreshed, err := c.refresh(ctx, rec)
		if err != nil {
			return Ready{}, fmt.Errorf("gateway: refreshing credential: %w", err)
		}
		rec = refreshed
	}

	bound := c.upstream.Bind(rec.AccessToken)

	projectID, err := c.resolver.Resolve(ctx, bound, rec.AccessToken, rec.ProjectID, func(discovered string) {
		if err := c.creds.SetProjectID(discovered); err != nil {
			c.log.WithError(err).Warn("persisting discovered project id")
		}
	})
	if err != nil {
		return Ready{}, fmt.Errorf("gateway: resolving project: %w", err)
	}

	credentialID := rec.Email
	if credentialID == "" {
		credentialID = rec.ClientID
	}
	if err := c.onboarder.EnsureOnboarded(ctx, bound, credentialID, projectID); err != nil {
		return Ready{}, fmt.Errorf("gateway: onboarding: %w", err)
	}

	return Ready{AccessToken: rec.AccessToken, ProjectID: projectID}, nil
}

// refresh re-checks the active credential under lock before hitting the
// token endpoint, so a request that arrived just after another request's
// refresh landed doesn't refresh again.
func (c *Core) refresh(ctx context.Context, stale *credential.Record) (*credential.Record, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.creds.Active(); current != nil && !current.Expired() {
		return current, nil
	}

	refreshed, err := c.oauthMgr.Refresh(ctx, stale)
	if err != nil {
		return nil, err
	}
	if err := c.creds.SaveRefreshed(refreshed); err != nil {
		c.log.WithError(err).Warn("persisting refreshed credential")
	}
	return refreshed, nil
}

// Bound returns an upstream view pinned to accessToken, for handlers that
// already called EnsureReady and now need to send the actual generation
// request.
func (c *Core) Bound(accessToken string) *codeassist.Bound {
	return c.upstream.Bind(accessToken)
}
