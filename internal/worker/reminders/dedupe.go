package reminderworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
)

const reminderKeyPrefix = "reminder:"

// Deduper makes sure a booking is reminded at most once across replicas.
type Deduper interface {
	// Claim reports whether the caller won the right to send for bookingID.
	Claim(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	// Unclaim gives the booking back after a failed send.
	Unclaim(ctx context.Context, bookingID string) error
}

// RedisDeduper claims bookings with SET NX so several API instances can run
// the scheduler side by side.
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	if client == nil {
		return nil
	}
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Claim(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, reminderKeyPrefix+bookingID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reminders: claim %s: %w", bookingID, err)
	}
	return ok, nil
}

func (d *RedisDeduper) Unclaim(ctx context.Context, bookingID string) error {
	if err := d.client.Del(ctx, reminderKeyPrefix+bookingID).Err(); err != nil {
		return fmt.Errorf("reminders: unclaim %s: %w", bookingID, err)
	}
	return nil
}

// MemoryDeduper is the single-process Deduper. Claims expire on clk.
type MemoryDeduper struct {
	mu      sync.Mutex
	claimed map[string]time.Time
	clock   clock.Clock
}

func NewMemoryDeduper(clk clock.Clock) *MemoryDeduper {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &MemoryDeduper{claimed: make(map[string]time.Time), clock: clk}
}

func (d *MemoryDeduper) Claim(_ context.Context, bookingID string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock.Now()
	for id, expires := range d.claimed {
		if now.After(expires) {
			delete(d.claimed, id)
		}
	}
	if _, ok := d.claimed[bookingID]; ok {
		return false, nil
	}
	d.claimed[bookingID] = now.Add(ttl)
	return true, nil
}

func (d *MemoryDeduper) Unclaim(_ context.Context, bookingID string) error {
	d.mu.Lock()
	delete(d.claimed, bookingID)
	d.mu.Unlock()
	return nil
}
