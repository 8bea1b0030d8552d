package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/conversation"
	"github.com/wolfman30/clinic-appointment-bot/internal/session"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
	"golang.org/x/net/websocket"
)

// stubService echoes messages and records them per user.
type stubService struct {
	mu      sync.Mutex
	inbound map[string][]string
	history map[string][]conversation.TranscriptMessage
	err     error
}

func newStubService() *stubService {
	return &stubService{
		inbound: make(map[string][]string),
		history: make(map[string][]conversation.TranscriptMessage),
	}
}

func (s *stubService) HandleMessage(_ context.Context, userID, text string) (conversation.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return conversation.Reply{}, s.err
	}
	s.inbound[userID] = append(s.inbound[userID], text)
	if text == "yes" {
		return conversation.Reply{
			Kind:     conversation.ReplyBooked,
			State:    session.StateCompleted,
			Messages: []string{"Your appointment is confirmed!"},
			Booking:  &bookings.Booking{ID: "APT-1"},
		}, nil
	}
	return conversation.Reply{
		Kind:     conversation.ReplyPrompt,
		State:    session.StateAwaitingGender,
		Messages: []string{"Thanks!", "Please select your gender:"},
		Options:  conversation.GenderOptions,
	}, nil
}

func (s *stubService) History(_ context.Context, userID string, limit int64) ([]conversation.TranscriptMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.history[userID]
	if limit > 0 && int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	return msgs, nil
}

func (s *stubService) received(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.inbound[userID]...)
}

func TestUserID(t *testing.T) {
	assert.Equal(t, "webchat:sess456", UserID("sess456"))
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
}

func TestHandleMessage_HTTP(t *testing.T) {
	svc := newStubService()
	h := NewHandler(svc, logging.New("error"))

	body := `{"session_id":"sess1","text":"Female"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "message", resp.Type)
	assert.Equal(t, "sess1", resp.SessionID)
	assert.Equal(t, "awaiting_gender", resp.State)
	assert.Equal(t, "Thanks!\n\nPlease select your gender:", resp.Text)
	assert.Equal(t, []string{"Male", "Female", "Other"}, resp.Options)

	assert.Equal(t, []string{"Female"}, svc.received("webchat:sess1"))
}

func TestHandleMessage_BookingID(t *testing.T) {
	h := NewHandler(newStubService(), logging.New("error"))
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/message", strings.NewReader(`{"session_id":"s","text":"yes"}`))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)

	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "booked", resp.Kind)
	assert.Equal(t, "APT-1", resp.BookingID)
}

func TestHandleMessage_MissingText(t *testing.T) {
	h := NewHandler(newStubService(), logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/message", strings.NewReader(`{"session_id":"s","text":"  "}`))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessage_GeneratesSessionID(t *testing.T) {
	h := NewHandler(newStubService(), logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/message", strings.NewReader(`{"text":"Hi"}`))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.SessionID, 32)
}

func TestHandleMessage_ServiceError(t *testing.T) {
	svc := newStubService()
	svc.err = errors.New("boom")
	h := NewHandler(svc, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/message", strings.NewReader(`{"session_id":"s","text":"hi"}`))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleHistory(t *testing.T) {
	svc := newStubService()
	svc.history["webchat:sess1"] = []conversation.TranscriptMessage{
		{Role: "user", Body: "Hello", Timestamp: time.Date(2025, 8, 18, 9, 0, 0, 0, time.UTC)},
		{Role: "assistant", Body: "Please enter your full name:"},
	}
	h := NewHandler(svc, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/history?session=sess1", nil)
	w := httptest.NewRecorder()
	h.HandleHistory(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, "2025-08-18T09:00:00Z", resp.Messages[0].Timestamp)
	assert.Equal(t, "assistant", resp.Messages[1].Role)
}

func TestHandleHistory_MissingSession(t *testing.T) {
	h := NewHandler(newStubService(), logging.New("error"))
	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/v1/chat/history", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebSocketRoundTrip(t *testing.T) {
	svc := newStubService()
	svc.history["webchat:ws1"] = []conversation.TranscriptMessage{{Role: "user", Body: "earlier"}}
	hub := NewHub()
	h := NewHandler(svc, logging.New("error")).WithHub(hub)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=ws1"
	conn, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	defer conn.Close()

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "session", msg.Type)
	assert.Equal(t, "ws1", msg.SessionID)

	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "history", msg.Type)
	require.Len(t, msg.Messages, 1)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	msg = OutboundMessage{}
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "pong", msg.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "Female"}))
	msg = OutboundMessage{}
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "message", msg.Type)
	assert.Equal(t, "awaiting_gender", msg.State)

	assert.Equal(t, 1, hub.Len())
	assert.True(t, hub.Push("webchat:ws1", OutboundMessage{Type: "message", Text: "Reminder"}))
	msg = OutboundMessage{}
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "Reminder", msg.Text)

	assert.False(t, hub.Push("webchat:unknown", OutboundMessage{Type: "message"}))
	assert.Equal(t, []string{"Female"}, svc.received("webchat:ws1"))
}
