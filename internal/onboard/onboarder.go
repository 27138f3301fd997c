// Package onboard ensures the active identity is enrolled on a Code Assist
// tier before the gateway sends it any generation traffic.
package onboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrProjectRequired is returned when the selected tier needs a
// caller-supplied project id and none was provided.
var ErrProjectRequired = errors.New("onboard: selected tier requires a user-defined project")

// ErrTimeout is returned when the long-running onboarding operation does
// not complete within the configured wall-clock budget.
var ErrTimeout = errors.New("onboard: onboarding timed out")

// ErrFailed wraps any non-timeout failure of the loadCodeAssist/onboardUser
// exchange (a transport error or an upstream-reported operation error),
// per spec.md 7's OnboardingFailed(<upstream body>) taxonomy entry.
var ErrFailed = errors.New("onboard: onboarding failed")

// Caller is the subset of the upstream transport the onboarder needs.
type Caller interface {
	Action(ctx context.Context, action string, payload []byte) (*http.Response, error)
}

type tier struct {
	ID                                 string `json:"id"`
	IsDefault                          bool   `json:"isDefault"`
	UserDefinedCloudaicompanionProject bool   `json:"userDefinedCloudaicompanionProject"`
}

type loadCodeAssistResponse struct {
	CurrentTier  *tier  `json:"currentTier"`
	AllowedTiers []tier `json:"allowedTiers"`
}

type longRunningOperation struct {
	Done  bool            `json:"done"`
	Error *operationError `json:"error"`
}

type operationError struct {
	Message string `json:"message"`
}

const legacyTierID = "legacy-tier"

// Onboarder tracks, per process, whether the (credential, project) pair has
// completed onboarding. onboarded is never persisted (spec.md 3).
type Onboarder struct {
	mu             sync.Mutex
	onboardedPairs map[string]bool
	pollInterval   time.Duration
	maxWait        time.Duration
	log            *logrus.Entry
}

// New constructs an Onboarder with the given poll interval/max wait.
func New(pollInterval, maxWait time.Duration, log *logrus.Entry) *Onboarder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if pollInterval <= 0 {
		pollInterval = 2500 * time.Millisecond
	}
	if maxWait <= 0 {
		maxWait = 90 * time.Second
	}
	return &Onboarder{
		onboardedPairs: make(map[string]bool),
		pollInterval:   pollInterval,
		maxWait:        maxWait,
		log:            log,
	}
}

// EnsureOnboarded onboards the given (credential, project) pair exactly
// once per process. Subsequent calls for the same pair are no-ops.
func (o *Onboarder) EnsureOnboarded(ctx context.Context, caller Caller, credentialID, projectID string) error {
	key := credentialID + "/" + projectID
	o.mu.Lock()
	if o.onboardedPairs[key] {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	if err := o.onboard(ctx, caller, projectID); err != nil {
		return err
	}

	o.mu.Lock()
	o.onboardedPairs[key] = true
	o.mu.Unlock()
	return nil
}

func (o *Onboarder) onboard(ctx context.Context, caller Caller, projectID string) error {
	loadBody, _ := json.Marshal(map[string]any{
		"cloudaicompanionProject": projectID,
		"metadata": map[string]any{
			"ideType":    "IDE_UNSPECIFIED",
			"platform":   "PLATFORM_UNSPECIFIED",
			"pluginType": "GEMINI",
		},
	})
	resp, err := caller.Action(ctx, "loadCodeAssist", loadBody)
	if err != nil {
		return fmt.Errorf("%w: loadCodeAssist: %v", ErrFailed, err)
	}
	var loaded loadCodeAssistResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&loaded)
	resp.Body.Close()
	if decodeErr != nil {
		return fmt.Errorf("%w: decoding loadCodeAssist response: %v", ErrFailed, decodeErr)
	}
	if loaded.CurrentTier != nil {
		o.log.Info("identity already onboarded")
		return nil
	}

	selected := selectTier(loaded.AllowedTiers)
	if selected.UserDefinedCloudaicompanionProject && projectID == "" {
		return ErrProjectRequired
	}

	onboardBody, _ := json.Marshal(map[string]any{
		"tierId":                  selected.ID,
		"cloudaicompanionProject": projectID,
		"metadata": map[string]any{
			"ideType":    "IDE_UNSPECIFIED",
			"platform":   "PLATFORM_UNSPECIFIED",
			"pluginType": "GEMINI",
		},
	})
	return o.pollUntilDone(ctx, caller, onboardBody)
}

func selectTier(tiers []tier) tier {
	for _, t := range tiers {
		if t.IsDefault {
			return t
		}
	}
	return tier{ID: legacyTierID}
}

func (o *Onboarder) pollUntilDone(ctx context.Context, caller Caller, body []byte) error {
	deadline := time.Now().Add(o.maxWait)
	for {
		resp, err := caller.Action(ctx, "onboardUser", body)
		if err != nil {
			return fmt.Errorf("%w: onboardUser: %v", ErrFailed, err)
		}
		var op longRunningOperation
		decodeErr := json.NewDecoder(resp.Body).Decode(&op)
		resp.Body.Close()
		if decodeErr != nil {
			return fmt.Errorf("%w: decoding onboardUser response: %v", ErrFailed, decodeErr)
		}
		if op.Error != nil {
			return fmt.Errorf("%w: %s", ErrFailed, op.Error.Message)
		}
		if op.Done {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.pollInterval):
		}
	}
}
