package transcribe

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenScope = "https://www.googleapis.com/auth/cloud-platform"

// tokenEarlyExpiry refreshes the cached token a few minutes before the
// provider actually expires it.
const tokenEarlyExpiry = 5 * time.Minute

// serviceAccount is the subset of a Google service-account key file needed
// for the JWT-bearer exchange.
type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// TokenSource exchanges a signed assertion for a bearer token and caches it
// process-wide. This is the only shared mutable state in the pipeline: it is
// read-mostly and refreshed lazily on first use after expiry. Injected as a
// constructor dependency so tests can point it at a fake token endpoint.
type TokenSource struct {
	email    string
	key      *rsa.PrivateKey
	tokenURL string
	hc       *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource parses a service-account key file.
func NewTokenSource(credsJSON []byte) (*TokenSource, error) {
	var sa serviceAccount
	if err := json.Unmarshal(credsJSON, &sa); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("credentials missing client_email or private_key")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if sa.TokenURI == "" {
		sa.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return &TokenSource{
		email:    sa.ClientEmail,
		key:      key,
		tokenURL: sa.TokenURI,
		hc:       &http.Client{Timeout: 30 * time.Second}, // metadata class
	}, nil
}

// Token returns a valid bearer token, refreshing it when the cached one is
// within the early-expiry window.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiry) {
		return ts.token, nil
	}

	assertion, err := ts.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, "POST", ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange (status %d): %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned empty access_token")
	}

	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime <= tokenEarlyExpiry {
		lifetime = 2 * tokenEarlyExpiry
	}
	ts.token = tok.AccessToken
	ts.expiry = time.Now().Add(lifetime - tokenEarlyExpiry)
	return ts.token, nil
}

func (ts *TokenSource) signAssertion() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   ts.email,
		"scope": tokenScope,
		"aud":   ts.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.key)
}
