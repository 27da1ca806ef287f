//go:build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/cypress-connect/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/cypress-connect/internal/app"
	authpkg "github.com/heartmarshall/cypress-connect/internal/auth"
	"github.com/heartmarshall/cypress-connect/internal/config"
	"github.com/heartmarshall/cypress-connect/internal/domain"
)

const (
	jwtSecret = "test-secret-at-least-32-chars-long!!"
	jwtIssuer = "test-issuer"
)

// ---------------------------------------------------------------------------
// testServer runs the full application against a real PostgreSQL container
// (shared via testhelper).
// ---------------------------------------------------------------------------

type testServer struct {
	URL    string
	Client *http.Client
	jwt    *authpkg.JWTManager
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// changeBus selects how document changes reach live queries.
type changeBus string

const (
	busPostgres changeBus = config.ChangeBusPostgres
	busRedis    changeBus = config.ChangeBusRedis
)

func setupTestServer(t *testing.T, bus changeBus) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{
			DSN:             testhelper.DSN(t),
			MaxConns:        5,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: time.Minute,
		},
		DocStore: config.DocStoreConfig{
			Driver:    config.DriverPostgres,
			ChangeBus: string(bus),
			Channel:   "docstore_e2e_" + uuid.NewString()[:8],
		},
		Auth: config.AuthConfig{JWTSecret: jwtSecret, JWTIssuer: jwtIssuer, AccessTokenTTL: 15 * time.Minute},
		CORS: config.CORSConfig{
			AllowedOrigins:   "*",
			AllowedMethods:   "GET,POST,DELETE,OPTIONS",
			AllowedHeaders:   "Authorization,Content-Type",
			AllowCredentials: true,
			MaxAge:           86400,
		},
		Log:        config.LogConfig{Level: "info", Format: "text"},
		Moderation: config.ModerationConfig{HistoryLimit: 10, WriteTimeout: 5 * time.Second, CatalogCacheSize: 64},
		RateLimit:  config.RateLimitConfig{SubmissionsPerMinute: 100},
	}
	if bus == busRedis {
		cfg.Redis.URL = "redis://" + miniredis.RunT(t).Addr()
	}
	require.NoError(t, cfg.Validate())

	logger := slog.New(slog.NewTextHandler(testLogWriter{t}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	a, err := app.New(ctx, cfg, logger)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("serve did not stop")
		}
	})

	return &testServer{
		URL:    "http://" + a.Addr(),
		Client: &http.Client{Timeout: 10 * time.Second},
		jwt:    authpkg.NewJWTManager(jwtSecret, jwtIssuer, 15*time.Minute),
	}
}

// ---------------------------------------------------------------------------
// Identities
// ---------------------------------------------------------------------------

func (ts *testServer) token(t *testing.T, mod domain.Moderator) string {
	t.Helper()
	token, err := ts.jwt.GenerateAccessToken(mod)
	require.NoError(t, err)
	return token
}

func newModerator(role domain.UserRole) domain.Moderator {
	uid := uuid.NewString()
	return domain.Moderator{UID: uid, Email: uid[:8] + "@cypress.test", Role: role}
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	status, raw, err := ts.tryDo(method, path, token, body)
	require.NoError(t, err)
	return status, raw
}

// tryDo never fails the test, so it is safe inside Eventually.
func (ts *testServer) tryDo(method, path, token string, body any) (int, []byte, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, err
}

type item struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Starred bool   `json:"starred"`
}

type itemList struct {
	Items []item `json:"items"`
	Count int    `json:"count"`
}

// list fetches a catalog list; ok is false on any failure.
func (ts *testServer) list(path string) (itemList, bool) {
	status, raw, err := ts.tryDo(http.MethodGet, path, "", nil)
	if err != nil || status != http.StatusOK {
		return itemList{}, false
	}
	var out itemList
	if err := json.Unmarshal(raw, &out); err != nil {
		return itemList{}, false
	}
	return out, true
}

func decodeJSON[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), "body: %s", raw)
	return v
}

var errNotFound = errors.New("not found")

func findItem(items []item, id string) (item, error) {
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return item{}, errNotFound
}
