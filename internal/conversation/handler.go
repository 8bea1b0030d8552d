package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// MessageRequest is the body of POST /v1/conversations/message.
type MessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// MessageResponse is the JSON form of a Reply.
type MessageResponse struct {
	Reply
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewMessageResponse flattens a reply for JSON transports.
func NewMessageResponse(r Reply) MessageResponse {
	resp := MessageResponse{Reply: r}
	if r.Err != nil {
		resp.Error = r.Err.Error()
		var ve *ValidationError
		if errors.As(r.Err, &ve) {
			resp.Error = ve.Message
			resp.ErrorCode = string(ve.Code)
		}
	}
	return resp
}

type doctorResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Specialty string   `json:"specialty"`
	Fee       string   `json:"fee"`
	Days      []string `json:"days"`
	Slots     []string `json:"slots"`
}

type slotsResponse struct {
	DoctorID string   `json:"doctor_id"`
	Date     string   `json:"date"`
	Free     []string `json:"free"`
}

type sessionResponse struct {
	UserID       string                      `json:"user_id"`
	State        string                      `json:"state"`
	Request      bookings.AppointmentRequest `json:"request"`
	Token        *availability.Token         `json:"token,omitempty"`
	OfferedSlots []string                    `json:"offered_slots,omitempty"`
	BookingID    string                      `json:"booking_id,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	LastActivity time.Time                   `json:"last_activity"`
}

// Handler wires HTTP requests to the conversation service and the catalog.
type Handler struct {
	service *Service
	catalog *catalog.Catalog
	engine  *availability.Engine
	finder  bookings.Finder
	logger  *logging.Logger
}

// NewHandler creates a conversation handler. finder may be nil, in which case
// booking lookups answer 404.
func NewHandler(service *Service, cat *catalog.Catalog, engine *availability.Engine, finder bookings.Finder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, catalog: cat, engine: engine, finder: finder, logger: logger}
}

// Message handles POST /v1/conversations/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reply, err := h.service.HandleMessage(r.Context(), req.UserID, req.Text)
	if err != nil {
		if errors.Is(err, ErrUserIDRequired) {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to process message", "error", err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, NewMessageResponse(reply))
}

// History handles GET /v1/conversations/{userID}/history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	msgs, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to load transcript", "user_id", userID, "error", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "messages": msgs})
}

// Doctors handles GET /v1/doctors.
func (h *Handler) Doctors(w http.ResponseWriter, r *http.Request) {
	doctors := h.catalog.ListDoctors()
	out := make([]doctorResponse, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, doctorResponse{
			ID:        d.ID,
			Name:      d.Name,
			Specialty: d.Specialty,
			Fee:       d.Fee,
			Days:      d.DayNames(),
			Slots:     d.Slots,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// FreeSlots handles GET /v1/doctors/{doctorID}/slots?date=YYYY-MM-DD.
func (h *Handler) FreeSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	free, err := h.engine.FreeSlots(doctorID, date)
	switch {
	case errors.Is(err, catalog.ErrDoctorNotFound):
		http.Error(w, "doctor not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, slotsResponse{DoctorID: doctorID, Date: date, Free: free})
}

// Session handles GET /admin/sessions/{userID}.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s, ok := h.service.Session(userID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, sessionResponse{
		UserID:       s.UserID,
		State:        s.State.String(),
		Request:      s.Request,
		Token:        s.Token,
		OfferedSlots: s.OfferedSlots,
		BookingID:    s.BookingID,
		CreatedAt:    s.CreatedAt.UTC(),
		LastActivity: s.LastActivity.UTC(),
	})
}

// EndSession handles DELETE /admin/sessions/{userID}.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if !h.service.End(chi.URLParam(r, "userID")) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Booking handles GET /admin/bookings/{bookingID}.
func (h *Handler) Booking(w http.ResponseWriter, r *http.Request) {
	if h.finder == nil {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}
	b, err := h.finder.Get(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		if errors.Is(err, bookings.ErrBookingNotFound) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load booking", "error", err)
		http.Error(w, "Failed to load booking", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
