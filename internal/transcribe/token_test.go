package transcribe

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testCreds(t *testing.T, tokenURL string) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	creds, err := json.Marshal(map[string]string{
		"client_email": "recognizer@test-project.iam.gserviceaccount.com",
		"private_key":  string(pemKey),
		"token_uri":    tokenURL,
	})
	if err != nil {
		t.Fatalf("marshal creds: %v", err)
	}
	return creds, key
}

func TestTokenExchange(t *testing.T) {
	var exchanges int
	var lastAssertion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
			t.Errorf("grant_type = %q", got)
		}
		lastAssertion = r.Form.Get("assertion")
		exchanges++
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":3600}`, exchanges)
	}))
	defer srv.Close()

	creds, key := testCreds(t, srv.URL)
	ts, err := NewTokenSource(creds)
	if err != nil {
		t.Fatalf("new token source: %v", err)
	}

	tok, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "token-1" {
		t.Errorf("token = %q, want token-1", tok)
	}

	// The assertion is a signed JWT carrying the account and scope claims.
	parsed, err := jwt.Parse(lastAssertion, func(tk *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		t.Fatalf("parse assertion: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["iss"] != "recognizer@test-project.iam.gserviceaccount.com" {
		t.Errorf("iss = %v", claims["iss"])
	}
	if claims["scope"] != tokenScope {
		t.Errorf("scope = %v", claims["scope"])
	}
	if claims["aud"] != srv.URL {
		t.Errorf("aud = %v", claims["aud"])
	}
}

func TestTokenCaching(t *testing.T) {
	var exchanges int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":3600}`, exchanges)
	}))
	defer srv.Close()

	creds, _ := testCreds(t, srv.URL)
	ts, err := NewTokenSource(creds)
	if err != nil {
		t.Fatalf("new token source: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tok, err := ts.Token(ctx)
		if err != nil {
			t.Fatalf("token call %d: %v", i, err)
		}
		if tok != "token-1" {
			t.Errorf("call %d returned %q, want cached token-1", i, tok)
		}
	}
	if exchanges != 1 {
		t.Errorf("exchanges = %d, want 1", exchanges)
	}

	// Force the cache past its expiry; the next call refreshes.
	ts.mu.Lock()
	ts.expiry = time.Now().Add(-time.Second)
	ts.mu.Unlock()

	tok, err := ts.Token(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if tok != "token-2" {
		t.Errorf("refreshed token = %q, want token-2", tok)
	}
	if exchanges != 2 {
		t.Errorf("exchanges = %d, want 2", exchanges)
	}
}

func TestTokenExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	creds, _ := testCreds(t, srv.URL)
	ts, err := NewTokenSource(creds)
	if err != nil {
		t.Fatalf("new token source: %v", err)
	}
	if _, err := ts.Token(context.Background()); err == nil {
		t.Fatal("expected error from rejected exchange")
	}
}

func TestNewTokenSourceValidation(t *testing.T) {
	if _, err := NewTokenSource([]byte("not json")); err == nil {
		t.Error("accepted malformed JSON")
	}
	if _, err := NewTokenSource([]byte(`{"client_email":"a@b.c"}`)); err == nil {
		t.Error("accepted credentials without a private key")
	}
	if _, err := NewTokenSource([]byte(`{"client_email":"a@b.c","private_key":"garbage"}`)); err == nil {
		t.Error("accepted an unparseable private key")
	}
}
