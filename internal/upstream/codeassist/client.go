package codeassist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"gemini-gateway/internal/config"
	"gemini-gateway/internal/constants"
)

func newBodyReader(body []byte) io.Reader {
	return bytes.NewReader(body)
}

// Client is the single shared, connection-pooled HTTP client every request
// in the process sends upstream traffic through (spec.md 5: "a single
// shared HTTP client multiplexes all upstream traffic").
type Client struct {
	cfg *config.Config
	cli *http.Client
}

// New builds the shared transport from cfg's pool/timeout tunables.
func New(cfg *config.Config) *Client {
	connectTimeout := time.Duration(cfg.UpstreamConnectTimeoutSec) * time.Second
	if connectTimeout <= 0 {
		connectTimeout = constants.DefaultDialTimeout
	}
	hdrTimeout := time.Duration(cfg.UpstreamResponseHdrTimeout) * time.Second

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: constants.DefaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   constants.DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: hdrTimeout,
		ExpectContinueTimeout: constants.DefaultExpectContinueTimeout,
		MaxIdleConns:          orDefault(cfg.UpstreamMaxConnections, constants.BaseMaxIdleConns),
		MaxIdleConnsPerHost:   orDefault(cfg.UpstreamMaxIdlePerHost, constants.BaseMaxIdleConnsPerHost),
		MaxConnsPerHost:       orDefault(cfg.UpstreamMaxConnections, constants.BaseMaxIdleConns),
		IdleConnTimeout:       constants.BaseIdleConnTimeout,
	}
	return &Client{cfg: cfg, cli: &http.Client{Transport: tr, Timeout: 0}}
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// postJSON performs a single logical upstream call with the retry policy
// from spec.md 4.8: at most MaxAttempts tries, full-jitter exponential
// backoff, Retry-After honored when present.
//
// The caller owns resp.Body on a non-error return and must close it.
func (c *Client) postJSON(ctx context.Context, url string, body []byte, bearer string) (*http.Response, error) {
	maxAttempts := c.cfg.UpstreamMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	base := time.Duration(c.cfg.UpstreamBackoffBaseSec * float64(time.Second))
	max := time.Duration(c.cfg.UpstreamBackoffMaxSec * float64(time.Second))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, newBodyReader(body))
		if err != nil {
			return nil, err
		}
		applyHeaders(req, bearer)

		resp, err := c.cli.Do(req)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if attempt == maxAttempts {
				return nil, fmt.Errorf("upstream: %d attempts exhausted: %w", attempt, err)
			}
			if !sleep(ctx, nextBackoff(attempt, base, max)) {
				return nil, ctx.Err()
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) || attempt == maxAttempts {
			return resp, nil
		}

		wait := nextBackoff(attempt, base, max)
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok && d > wait {
			wait = d
			if max > 0 && wait > max {
				wait = max
			}
		}
		resp.Body.Close()
		if !sleep(ctx, wait) {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("upstream: exhausted attempts: %w", lastErr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Generate sends a non-streaming generateContent request.
func (c *Client) Generate(ctx context.Context, accessToken string, payload []byte) (*http.Response, error) {
	return c.postJSON(ctx, c.cfg.CodeAssist+"/v1internal:generateContent", payload, accessToken)
}

// Stream sends a streaming generateContent request (SSE response).
func (c *Client) Stream(ctx context.Context, accessToken string, payload []byte) (*http.Response, error) {
	return c.postJSON(ctx, c.cfg.CodeAssist+"/v1internal:streamGenerateContent?alt=sse", payload, accessToken)
}

// CountTokens sends a countTokens request.
func (c *Client) CountTokens(ctx context.Context, accessToken string, payload []byte) (*http.Response, error) {
	return c.postJSON(ctx, c.cfg.CodeAssist+"/v1internal:countTokens", payload, accessToken)
}

// Action sends a request to an arbitrary v1internal action (loadCodeAssist,
// onboardUser).
func (c *Client) Action(ctx context.Context, accessToken, action string, payload []byte) (*http.Response, error) {
	return c.postJSON(ctx, c.cfg.CodeAssist+"/v1internal:"+action, payload, accessToken)
}

// Bound pins a Client to one access token, matching the project.Caller and
// onboard.Caller collaborator interfaces those packages depend on.
type Bound struct {
	c     *Client
	token string
}

// Bind returns a token-scoped view of the shared client.
func (c *Client) Bind(accessToken string) *Bound {
	return &Bound{c: c, token: accessToken}
}

func (b *Bound) Generate(ctx context.Context, payload []byte) (*http.Response, error) {
	return b.c.Generate(ctx, b.token, payload)
}

func (b *Bound) Stream(ctx context.Context, payload []byte) (*http.Response, error) {
	return b.c.Stream(ctx, b.token, payload)
}

func (b *Bound) CountTokens(ctx context.Context, payload []byte) (*http.Response, error) {
	return b.c.CountTokens(ctx, b.token, payload)
}

func (b *Bound) Action(ctx context.Context, action string, payload []byte) (*http.Response, error) {
	return b.c.Action(ctx, b.token, action, payload)
}
