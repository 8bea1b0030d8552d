package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
	"github.com/wolfman30/clinic-appointment-bot/internal/conversation"
	"github.com/wolfman30/clinic-appointment-bot/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-appointment-bot/internal/http/middleware"
	"github.com/wolfman30/clinic-appointment-bot/internal/session"
	"github.com/wolfman30/clinic-appointment-bot/internal/webchat"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

const testSecret = "router-secret"

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) http.Handler {
	t.Helper()

	logger := logging.Default()
	clk := clock.NewFake(time.Date(2025, 8, 18, 9, 0, 0, 0, time.UTC))
	cat := catalog.Default()
	engine := availability.NewEngine(cat, clk)
	store := bookings.NewMemoryStore()
	pipeline := bookings.NewPipeline(engine, store, clk)
	registry := session.NewRegistry(clk, 30*time.Minute, session.WithDiscardHook(conversation.ReleaseOnDiscard(engine)))
	machine := conversation.NewMachine(cat, engine, pipeline, clk)
	service := conversation.NewService(registry, machine, conversation.WithTranscripts(conversation.NewMemoryTranscripts()))

	return New(&Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(service, cat, engine, store, logger),
		WebChat:             webchat.NewHandler(service, logger),
		AdminBookings:       handlers.NewAdminBookingsHandler(store, engine, registry, time.UTC, logger),
		AdminAuthSecret:     testSecret,
		CORSAllowedOrigins:  []string{"*"},
		RateLimiter:         limiter,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
	if rr.Header().Get(httpmiddleware.RequestIDHeader) == "" {
		t.Errorf("expected request id header")
	}
}

func TestRouterConversationMessage(t *testing.T) {
	router := newTestRouter(t, nil)

	body, err := json.Marshal(conversation.MessageRequest{UserID: "router-user", Text: "hello"})
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var resp conversation.MessageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != session.StateAwaitingName {
		t.Errorf("expected awaiting_name, got %q", resp.State)
	}
}

func TestRouterDoctorsAndChatRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, tc := range []struct {
		method, path string
		body         string
	}{
		{http.MethodGet, "/v1/doctors", ""},
		{http.MethodGet, "/v1/doctors/1/slots?date=2025-08-20", ""},
		{http.MethodPost, "/v1/chat/message", `{"session_id":"abc","text":"hi"}`},
		{http.MethodGet, "/v1/chat/history?session=abc", ""},
	} {
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s %s: expected 200, got %d: %s", tc.method, tc.path, rr.Code, rr.Body.String())
		}
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	token, err := httpmiddleware.IssueAdminToken(testSecret, "front-desk", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	for _, path := range []string{"/admin/stats", "/admin/bookings?date_from=2025-08-18"} {
		req = httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 with token, got %d: %s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestRouterAdminMissingWithoutSecret(t *testing.T) {
	r := New(&Config{Logger: logging.Default()})

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin secret is unset, got %d", rr.Code)
	}
}

func TestRouterRateLimitsPatientAPI(t *testing.T) {
	router := newTestRouter(t, httpmiddleware.NewRateLimiter(0.01, 1))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/doctors", nil)
		req.Header.Set("X-Real-Ip", "198.51.100.7")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [200 429], got %v", codes)
	}

	// Probes are outside the limited group.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Real-Ip", "198.51.100.7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected health to bypass rate limit, got %d", rr.Code)
	}
}
