package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix   = "chat_transcript:"
	defaultTranscriptTTL  = 7 * 24 * time.Hour
	defaultTranscriptSize = 250
)

// TranscriptMessage is one line of a chat transcript.
type TranscriptMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Body      string    `json:"body"`
	State     string    `json:"state,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcripts stores and lists chat transcripts.
type Transcripts interface {
	Append(ctx context.Context, userID string, msg TranscriptMessage) error
	List(ctx context.Context, userID string, limit int64) ([]TranscriptMessage, error)
}

// TranscriptStore keeps recent chat lines per user in a capped Redis list.
type TranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

// NewTranscriptStore returns nil when redisClient is nil so callers can fall
// back to MemoryTranscripts.
func NewTranscriptStore(redisClient *redis.Client, ttl time.Duration) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	return &TranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("clinic.internal.conversation.transcript"),
		ttl:         ttl,
		maxMessages: defaultTranscriptSize,
	}
}

func (s *TranscriptStore) Append(ctx context.Context, userID string, msg TranscriptMessage) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if userID == "" {
		return errors.New("conversation: transcript userID required")
	}
	msg = stampMessage(msg)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.append")
	defer span.End()

	key := transcriptKey(userID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append transcript message: %w", err)
	}
	return nil
}

func (s *TranscriptStore) List(ctx context.Context, userID string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if userID == "" {
		return nil, errors.New("conversation: transcript userID required")
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(userID), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []TranscriptMessage{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: list transcript: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(userID string) string {
	return transcriptKeyPrefix + userID
}

func stampMessage(msg TranscriptMessage) TranscriptMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg
}

// MemoryTranscripts is the in-process transcript store used without Redis.
type MemoryTranscripts struct {
	mu          sync.Mutex
	byUser      map[string][]TranscriptMessage
	maxMessages int
}

func NewMemoryTranscripts() *MemoryTranscripts {
	return &MemoryTranscripts{byUser: make(map[string][]TranscriptMessage), maxMessages: defaultTranscriptSize}
}

func (m *MemoryTranscripts) Append(_ context.Context, userID string, msg TranscriptMessage) error {
	if userID == "" {
		return errors.New("conversation: transcript userID required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.byUser[userID], stampMessage(msg))
	if len(list) > m.maxMessages {
		list = list[len(list)-m.maxMessages:]
	}
	m.byUser[userID] = list
	return nil
}

func (m *MemoryTranscripts) List(_ context.Context, userID string, limit int64) ([]TranscriptMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byUser[userID]
	if limit > 0 && int64(len(list)) > limit {
		list = list[int64(len(list))-limit:]
	}
	return append([]TranscriptMessage{}, list...), nil
}
