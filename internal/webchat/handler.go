package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/wolfman30/clinic-appointment-bot/internal/conversation"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
	"golang.org/x/net/websocket"
)

// MessageHandler runs one inbound chat message through the booking
// conversation. *conversation.Service satisfies it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, userID, text string) (conversation.Reply, error)
	History(ctx context.Context, userID string, limit int64) ([]conversation.TranscriptMessage, error)
}

// Handler manages web chat connections and messages.
type Handler struct {
	service MessageHandler
	hub     *Hub
	logger  *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "notification", "history", "session", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	State     string           `json:"state,omitempty"`
	Kind      string           `json:"kind,omitempty"`
	Options   []string         `json:"options,omitempty"`
	BookingID string           `json:"booking_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler.
func NewHandler(service MessageHandler, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: message handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		hub:     NewHub(),
		logger:  logger.WithComponent("webchat"),
	}
}

// WithHub shares hub with other pushers, such as the booking Sink.
func (h *Handler) WithHub(hub *Hub) *Handler {
	if hub != nil {
		h.hub = hub
	}
	return h
}

// UserID builds the conversation user id for a web chat session.
func UserID(sessionID string) string {
	return "webchat:" + sessionID
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	userID := UserID(sessionID)
	ctx := r.Context()

	wsc := &wsConn{conn: conn}
	_ = wsc.send(OutboundMessage{Type: "session", SessionID: sessionID})

	if msgs, err := h.service.History(ctx, userID, 50); err == nil && len(msgs) > 0 {
		_ = wsc.send(OutboundMessage{Type: "history", Messages: historyMessages(msgs)})
	}

	h.hub.attach(userID, wsc)
	defer h.hub.detach(userID, wsc)

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = wsc.send(OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		reply, err := h.service.HandleMessage(ctx, userID, msg.Text)
		if err != nil {
			h.logger.Error("webchat: failed to process message", "session_id", sessionID, "error", err)
			_ = wsc.send(OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
			continue
		}
		if err := wsc.send(outbound(reply)); err != nil {
			h.logger.Warn("webchat: failed to send reply", "session_id", sessionID, "error", err)
			return
		}
	}
}

// HandleMessage is the HTTP fallback for sending messages.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	reply, err := h.service.HandleMessage(r.Context(), UserID(req.SessionID), req.Text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("webchat: failed to process message", "session_id", req.SessionID, "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	out := outbound(reply)
	out.SessionID = req.SessionID
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	msgs, err := h.service.History(r.Context(), UserID(sessionID), 100)
	if err != nil {
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"messages": historyMessages(msgs)})
}
