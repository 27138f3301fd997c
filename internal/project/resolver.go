// Package project resolves the Google Cloud project id used to stamp every
// upstream Code Assist request.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrUndiscoverable is returned when upstream discovery completes without a
// usable project id.
var ErrUndiscoverable = fmt.Errorf("project: cloudaicompanionProject absent from loadCodeAssist response")

// Caller is the subset of the upstream transport the resolver needs: a
// POST to the loadCodeAssist action.
type Caller interface {
	Action(ctx context.Context, action string, payload []byte) (*http.Response, error)
}

// Resolver implements the four-step resolution order from spec.md 4.4:
// env var, process cache, credential file, upstream discovery.
type Resolver struct {
	mu    sync.Mutex
	cache string
	log   *logrus.Entry
}

// NewResolver constructs an empty Resolver.
func NewResolver(log *logrus.Entry) *Resolver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Resolver{log: log}
}

// Resolve returns the project id to use, discovering it via upstream if
// necessary. fromCredential is the project_id already stored on the active
// credential record, if any; onDiscovered is invoked with a newly
// discovered id so the caller can persist it back onto the credential.
func (r *Resolver) Resolve(ctx context.Context, caller Caller, accessToken, fromCredential string, onDiscovered func(string)) (string, error) {
	if v := strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT")); v != "" {
		return v, nil
	}

	r.mu.Lock()
	cached := r.cache
	r.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	if strings.TrimSpace(fromCredential) != "" {
		r.setCache(fromCredential)
		return fromCredential, nil
	}

	discovered, err := r.discover(ctx, caller, accessToken)
	if err != nil {
		return "", err
	}
	r.setCache(discovered)
	if onDiscovered != nil {
		onDiscovered(discovered)
	}
	return discovered, nil
}

func (r *Resolver) setCache(v string) {
	r.mu.Lock()
	r.cache = v
	r.mu.Unlock()
}

type loadCodeAssistResponse struct {
	CloudaicompanionProject string        `json:"cloudaicompanionProject"`
	CurrentTier             *tierInfo     `json:"currentTier"`
	AllowedTiers            []tierInfo    `json:"allowedTiers"`
}

type tierInfo struct {
	ID                   string `json:"id"`
	IsDefault            bool   `json:"isDefault"`
	UserDefinedCloudaicompanionProject bool `json:"userDefinedCloudaicompanionProject"`
}

func (r *Resolver) discover(ctx context.Context, caller Caller, accessToken string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"metadata": map[string]any{
			"ideType":    "IDE_UNSPECIFIED",
			"platform":   "PLATFORM_UNSPECIFIED",
			"pluginType": "GEMINI",
		},
	})
	resp, err := caller.Action(ctx, "loadCodeAssist", body)
	if err != nil {
		return "", fmt.Errorf("project: loadCodeAssist: %w", err)
	}
	defer resp.Body.Close()

	var parsed loadCodeAssistResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("project: decoding loadCodeAssist response: %w", err)
	}
	if strings.TrimSpace(parsed.CloudaicompanionProject) == "" {
		return "", ErrUndiscoverable
	}
	return parsed.CloudaicompanionProject, nil
}
