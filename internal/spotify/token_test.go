package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"
)

// tokenServer issues "token-N" for the Nth request and fails the requests listed in fail.
type tokenServer struct {
	server   *httptest.Server
	requests atomic.Int32
	fail     map[int32]bool
}

func newTokenServer(t *testing.T, fail ...int32) *tokenServer {
	t.Helper()
	ts := &tokenServer{fail: make(map[int32]bool)}
	for _, n := range fail {
		ts.fail[n] = true
	}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := ts.requests.Add(1)
		if user, _, ok := r.BasicAuth(); !ok || user != "client-id" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if ts.fail[n] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":60}`, n)
	}))
	t.Cleanup(ts.server.Close)
	return ts
}

func newTestRenewer(ts *tokenServer, logger *zap.Logger) *tokenRenewer {
	r := newTokenRenewer("client-id", "client-secret", logger)
	r.config.TokenURL = ts.server.URL
	r.retryInterval = 10 * time.Millisecond
	return r
}

func TestTokenRenewer_KeepsLastGoodToken(t *testing.T) {
	ts := newTokenServer(t, 2)
	r := newTestRenewer(ts, zap.NewNop())

	token, err := r.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token.AccessToken != "token-1" {
		t.Errorf("Token() = %q, want %q", token.AccessToken, "token-1")
	}

	if _, err := r.renew(context.Background()); err == nil {
		t.Fatal("renew() error = nil, want error from failing endpoint")
	}

	token, err = r.Token()
	if err != nil {
		t.Fatalf("Token() after failed renewal error = %v", err)
	}
	if token.AccessToken != "token-1" {
		t.Errorf("Token() after failed renewal = %q, want %q", token.AccessToken, "token-1")
	}
	if got := ts.requests.Load(); got != 2 {
		t.Errorf("token requests = %d, want 2", got)
	}
}

func TestTokenRenewer_RunRetriesAfterFailure(t *testing.T) {
	ts := newTokenServer(t, 2, 3)
	observed, logs := observer.New(zapcore.WarnLevel)
	r := newTestRenewer(ts, zap.New(observed))

	if _, err := r.Token(); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for ts.requests.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if got := ts.requests.Load(); got < 4 {
		t.Fatalf("token requests = %d, want at least 4", got)
	}

	token, err := r.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token.AccessToken == "token-1" {
		t.Errorf("Token() = %q, want a renewed token", token.AccessToken)
	}

	warnings := logs.FilterMessage("Failed to renew Spotify token, retrying").Len()
	if warnings != 2 {
		t.Errorf("renewal warnings = %d, want 2", warnings)
	}
}

func TestTokenRenewer_Next(t *testing.T) {
	r := newTokenRenewer("id", "secret", zap.NewNop())
	r.retryInterval = time.Second

	if got := r.next(); got != 0 {
		t.Errorf("next() without token = %v, want 0", got)
	}

	r.token = &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Minute)}
	if got := r.next(); got != time.Second {
		t.Errorf("next() near expiry = %v, want %v", got, time.Second)
	}

	r.token = &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}
	if got := r.next(); got < 50*time.Minute || got > 55*time.Minute {
		t.Errorf("next() with an hour left = %v, want about 55m", got)
	}
}
