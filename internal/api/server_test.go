package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"daytrade-core/internal/events"
	"daytrade-core/internal/hitl"
	"daytrade-core/internal/position"
	"daytrade-core/internal/state"
)

func newTestServer() *Server {
	tr := state.NewTracker(nil, nil, "2026-08-28", 10000, 200)
	return NewServer(Options{
		Addr:      ":0",
		JWTSecret: "test-secret",
		JWTTTL:    time.Hour,
		AdminUser: "operator",
		AdminPass: "hunter2",
		Tracker:   tr,
		Positions: position.NewManager(position.DefaultExitConfig(), tr, nil, nil),
		Gate:      hitl.NewGate(time.Minute, nil),
		Bus:       events.NewBus(),
	})
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	body := `{"username":"operator","password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if out.Token == "" {
		t.Fatal("empty token")
	}
	return out.Token
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer()
	body := `{"username":"operator","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	w := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without a token", w.Code)
	}
}

func TestStateWithToken(t *testing.T) {
	s := newTestServer()
	token := login(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var out state.DailyState
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if out.Capital != 10000 {
		t.Fatalf("capital = %.2f, want 10000", out.Capital)
	}
}

func TestSafeModeResetEndpoint(t *testing.T) {
	s := newTestServer()
	s.opts.Tracker.TripSafeMode("test")
	token := login(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/safe-mode/reset", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if s.opts.Tracker.Snapshot().SafeMode {
		t.Fatal("safe mode still active after reset")
	}
}

func TestResolveUnknownIntentIs404(t *testing.T) {
	s := newTestServer()
	token := login(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/hitl/nope/approve", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
