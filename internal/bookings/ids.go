package bookings

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
)

// IDGenerator issues booking identifiers of the form APT-<time><seq>-<random>.
// The time+sequence part is strictly increasing within a process; the random
// suffix separates processes.
type IDGenerator struct {
	mu    sync.Mutex
	clock clock.Clock
	last  int64
	seq   uint64
}

func NewIDGenerator(clk clock.Clock) *IDGenerator {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &IDGenerator{clock: clk}
}

// Next returns a fresh identifier.
func (g *IDGenerator) Next() string {
	now := g.clock.Now().UnixMilli()

	g.mu.Lock()
	if now <= g.last {
		now = g.last
		g.seq++
	} else {
		g.last = now
		g.seq = 0
	}
	seq := g.seq
	g.mu.Unlock()

	u := uuid.New()
	suffix := strings.ToUpper(fmt.Sprintf("%x", u[:4]))
	stamp := strings.ToUpper(strconv.FormatInt(now, 36))
	if len(stamp) < 9 {
		stamp = strings.Repeat("0", 9-len(stamp)) + stamp
	}
	return fmt.Sprintf("APT-%s%s-%s", stamp, strings.ToUpper(strconv.FormatUint(seq, 36)), suffix)
}
