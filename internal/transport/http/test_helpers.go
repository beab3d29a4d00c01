package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/beamchat/beamchat-server/internal/auth"
	"github.com/beamchat/beamchat-server/internal/config"
	"github.com/beamchat/beamchat-server/internal/core"
	"github.com/beamchat/beamchat-server/internal/media"
	"github.com/beamchat/beamchat-server/internal/service/groups"
	"github.com/beamchat/beamchat-server/internal/service/messages"
	"github.com/beamchat/beamchat-server/internal/service/users"
	"github.com/beamchat/beamchat-server/internal/store/sqlite"
)

type testEnv struct {
	ts *httptest.Server
}

// newTestEnv wires the full transport stack over an in-memory store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	registry := core.NewRegistry()
	rooms := core.NewRooms()
	relay := core.NewRelay(registry, rooms)
	uploader := media.Disabled{}

	deps := Deps{
		Auth:     authService,
		Users:    users.New(st, uploader),
		Messages: messages.New(st, relay, uploader),
		Groups:   groups.New(st, relay, uploader),
		Registry: registry,
		Rooms:    rooms,
		Relay:    relay,
	}

	logger := zerolog.Nop()
	server := NewServer(deps, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts}
}

// signup registers a user through the API and returns its id and token.
func (e *testEnv) signup(t *testing.T, fullName, email string) (string, string) {
	t.Helper()

	body, _ := json.Marshal(SignupRequest{
		FullName: fullName,
		Email:    email,
		Password: "password123",
	})
	resp, err := e.ts.Client().Post(e.ts.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signup request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup failed with status %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode signup response: %v", err)
	}
	return authResp.User.ID, authResp.Token
}

// doJSON performs an authenticated JSON request against the test server.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}
