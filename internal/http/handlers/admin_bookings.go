package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// SlotStats reports the reservation table counts.
type SlotStats interface {
	Stats() (held, confirmed int)
}

// SessionCounter reports the number of live conversations.
type SessionCounter interface {
	Len() int
}

// AdminBookingsHandler serves the front-desk booking views.
type AdminBookingsHandler struct {
	lister   bookings.UpcomingLister
	slots    SlotStats
	sessions SessionCounter
	loc      *time.Location
	logger   *logging.Logger
}

// NewAdminBookingsHandler creates a new admin bookings handler. lister may be
// nil when the configured store cannot answer range queries.
func NewAdminBookingsHandler(lister bookings.UpcomingLister, slots SlotStats, sessions SessionCounter, loc *time.Location, logger *logging.Logger) *AdminBookingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AdminBookingsHandler{
		lister:   lister,
		slots:    slots,
		sessions: sessions,
		loc:      loc,
		logger:   logger,
	}
}

// BookingsListResponse represents a paginated list of bookings.
type BookingsListResponse struct {
	Bookings   []bookings.Booking `json:"bookings"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// StatsResponse summarises live booking state.
type StatsResponse struct {
	HeldSlots      int `json:"held_slots"`
	ConfirmedSlots int `json:"confirmed_slots"`
	ActiveSessions int `json:"active_sessions"`
}

// ListBookings returns confirmed bookings between date_from and date_to
// (inclusive, clinic time), optionally filtered by doctor.
// GET /admin/bookings
func (h *AdminBookingsHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		jsonError(w, "booking store does not support listing", http.StatusNotImplemented)
		return
	}
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	today := time.Now().In(h.loc)
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, h.loc)
	if raw := q.Get("date_from"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			jsonError(w, "date_from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	to := from.AddDate(0, 0, 7)
	if raw := q.Get("date_to"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			jsonError(w, "date_to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		jsonError(w, "date_to must not be before date_from", http.StatusBadRequest)
		return
	}

	list, err := h.lister.ListConfirmedBetween(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		jsonError(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	doctor := q.Get("doctor_id")
	filtered := make([]bookings.Booking, 0, len(list))
	for _, b := range list {
		if doctor != "" && b.Slot.DoctorID != doctor {
			continue
		}
		filtered = append(filtered, b)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].StartsAt.Before(filtered[j].StartsAt)
	})

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	jsonResponse(w, http.StatusOK, BookingsListResponse{
		Bookings:   filtered[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	})
}

// Stats returns reservation and session counts.
// GET /admin/stats
func (h *AdminBookingsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{}
	if h.slots != nil {
		resp.HeldSlots, resp.ConfirmedSlots = h.slots.Stats()
	}
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions.Len()
	}
	jsonResponse(w, http.StatusOK, resp)
}
