package conversation

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointment-bot/internal/session"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// ErrUserIDRequired is returned for messages without a user id.
var ErrUserIDRequired = errors.New("conversation: user id required")

const maxMessageLength = 2000

// Service is the entry point transports call for every inbound message.
type Service struct {
	registry    *session.Registry
	machine     *Machine
	transcripts Transcripts
	logger      *logging.Logger
	metrics     *metrics.BookingMetrics
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithTranscripts records every exchanged message.
func WithTranscripts(t Transcripts) ServiceOption {
	return func(s *Service) {
		s.transcripts = t
	}
}

func WithServiceLogger(logger *logging.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithServiceMetrics(m *metrics.BookingMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService builds the message service.
func NewService(registry *session.Registry, machine *Machine, opts ...ServiceOption) *Service {
	if registry == nil {
		panic("conversation: registry cannot be nil")
	}
	if machine == nil {
		panic("conversation: machine cannot be nil")
	}
	s := &Service{registry: registry, machine: machine, logger: logging.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("conversation")
	return s
}

// HandleMessage applies text to the user's session and returns the reply.
// A user's first message opens a session and is answered with the greeting.
func (s *Service) HandleMessage(ctx context.Context, userID, text string) (Reply, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Reply{}, ErrUserIDRequired
	}
	text = clampMessage(text)

	start := time.Now()
	var reply Reply
	err := s.registry.Do(ctx, userID, func(sess *session.Session, created bool) error {
		if created {
			sess.Language = string(DetectLanguage(text))
			if command(text) == "" {
				reply = s.machine.Begin(sess)
				return nil
			}
		}
		reply = s.machine.Advance(ctx, sess, text)
		return nil
	})
	if err != nil {
		return Reply{}, err
	}

	s.metrics.ObserveMessage(reply.State.String(), string(reply.Kind), time.Since(start).Seconds())
	s.metrics.SetActiveSessions(s.registry.Len())
	if reply.Kind == ReplyCommitFailed {
		s.logger.Warn("booking could not be saved", "user_id", userID, "error", reply.Err)
	}
	s.record(ctx, userID, text, reply)
	return reply, nil
}

// clampMessage drops invalid UTF-8 and cuts text to maxMessageLength bytes
// on a rune boundary.
func clampMessage(text string) string {
	text = strings.ToValidUTF8(text, "")
	if len(text) <= maxMessageLength {
		return text
	}
	cut := maxMessageLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// Session returns a snapshot of the user's live session.
func (s *Service) Session(userID string) (session.Session, bool) {
	return s.registry.Peek(userID)
}

// History lists the user's most recent transcript lines.
func (s *Service) History(ctx context.Context, userID string, limit int64) ([]TranscriptMessage, error) {
	if s.transcripts == nil {
		return []TranscriptMessage{}, nil
	}
	return s.transcripts.List(ctx, userID, limit)
}

// End drops the user's session, releasing any held slot.
func (s *Service) End(userID string) bool {
	return s.registry.Remove(userID)
}

func (s *Service) record(ctx context.Context, userID, text string, reply Reply) {
	if s.transcripts == nil {
		return
	}
	now := time.Now().UTC()
	lines := []TranscriptMessage{
		{Role: "user", Body: text, Timestamp: now},
		{Role: "assistant", Body: reply.Text(), State: reply.State.String(), Kind: string(reply.Kind), Timestamp: now},
	}
	for _, msg := range lines {
		if err := s.transcripts.Append(ctx, userID, msg); err != nil {
			s.logger.Warn("failed to record transcript", "user_id", userID, "error", err)
			return
		}
	}
}

// ReleaseOnDiscard returns a registry hook that frees the slot held by a
// session when it is dropped.
func ReleaseOnDiscard(engine *availability.Engine) session.DiscardHook {
	return func(s session.Session) {
		if s.Token != nil {
			engine.Release(*s.Token)
		}
	}
}
