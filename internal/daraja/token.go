package daraja

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTokenTTL = 3599 * time.Second
	tokenExpirySkew = 60 * time.Second
)

type tokenFetcher func(ctx context.Context) (string, time.Duration, error)

// tokenCache shares one OAuth token across the process. Concurrent misses
// collapse into a single fetch and no lock is held during the HTTP call.
type tokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	group singleflight.Group
	fetch tokenFetcher
	now   func() time.Time
}

func newTokenCache(fetch tokenFetcher, now func() time.Time) *tokenCache {
	return &tokenCache{fetch: fetch, now: now}
}

func (c *tokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !c.now().Add(tokenExpirySkew).Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *tokenCache) Get(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	v, err, _ := c.group.Do("token", func() (interface{}, error) {
		if token, ok := c.cached(); ok {
			return token, nil
		}
		// the flight is shared, so one caller's cancellation must not fail the others
		token, ttl, err := c.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token = token
		c.expiresAt = c.now().Add(ttl)
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token if it is still the one the caller saw rejected.
func (c *tokenCache) Invalidate(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stale == "" || c.token == stale {
		c.token = ""
		c.expiresAt = time.Time{}
	}
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   flexibleInt `json:"expires_in"`
}

// AccessToken returns a valid bearer token, fetching one when the cache is cold or near expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	return c.tokens.Get(ctx)
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	ctx, span := tracer.Start(ctx, "daraja.token")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", 0, fmt.Errorf("%w: build request: %v", ErrTokenAcquisition, err)
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+credentials)

	resp, err := c.hc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token request failed")
		return "", 0, fmt.Errorf("%w: %v", ErrTokenAcquisition, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "unexpected status")
		return "", 0, fmt.Errorf("%w: status %d: %s", ErrTokenAcquisition, resp.StatusCode, providerMessage(body))
	}

	var reply tokenResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", 0, fmt.Errorf("%w: decode response: %v", ErrTokenAcquisition, err)
	}
	if reply.AccessToken == "" {
		return "", 0, fmt.Errorf("%w: empty access_token", ErrTokenAcquisition)
	}

	ttl := defaultTokenTTL
	if reply.ExpiresIn.set && reply.ExpiresIn.value > 0 {
		ttl = time.Duration(reply.ExpiresIn.value) * time.Second
	}

	c.logger.Debug("daraja access token refreshed", "expires_in", ttl.String())
	return reply.AccessToken, ttl, nil
}
