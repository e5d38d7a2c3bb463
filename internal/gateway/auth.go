package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mlodari/camposanto/internal/common"
)

// refreshSkew is how close to expiry the access token may get before a
// refresh is attempted.
const refreshSkew = 30 * time.Second

// TokenSource hands out the bearer token for data-API requests, refreshing
// the access/refresh pair proactively when the access token is about to
// expire. The token is inspected without signature verification; only the
// exp claim matters here, validation is the server's job.
type TokenSource struct {
	refreshURL string
	client     *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string

	now func() time.Time
}

// NewTokenSource builds a source seeded with an initial token pair.
// refreshURL may be empty when the access token is a static API key; the
// source then hands it out unchanged.
func NewTokenSource(accessToken, refreshToken, refreshURL string, client *http.Client) *TokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenSource{
		refreshURL:   refreshURL,
		client:       client,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		now:          time.Now,
	}
}

// Token returns a bearer token valid for at least refreshSkew, refreshing if
// needed.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.needsRefresh() {
		return ts.accessToken, nil
	}
	if ts.refreshToken == "" || ts.refreshURL == "" {
		return "", common.ErrTokenExpired
	}
	if err := ts.refresh(ctx); err != nil {
		return "", err
	}
	return ts.accessToken, nil
}

// needsRefresh reports whether the access token expires within refreshSkew.
// Tokens that do not parse as JWTs (static API keys) never expire here.
func (ts *TokenSource) needsRefresh() bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(ts.accessToken, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return ts.now().Add(refreshSkew).After(exp.Time)
}

func (ts *TokenSource) refresh(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"refresh_token": ts.refreshToken})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.refreshURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.client.Do(req)
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh failed (status %d): %w", resp.StatusCode, common.ErrInvalidToken)
	}

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	ts.accessToken = pair.AccessToken
	ts.refreshToken = pair.RefreshToken
	return nil
}
