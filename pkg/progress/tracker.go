package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
)

type Snapshot struct {
	Done     int64
	InFlight int64
	Total    int64
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%d/%d", s.Done, s.Total)
}

func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return 100 * float64(s.Done) / float64(s.Total)
}

// Tracker counts finished units of work. All methods are safe for
// concurrent use and never block workers.
type Tracker struct {
	total    atomic.Int64
	done     atomic.Int64
	inFlight atomic.Int64

	log log.Logger
}

func NewTracker(total int, logger log.Logger) *Tracker {
	t := &Tracker{log: logger}
	t.total.Store(int64(total))
	return t
}

func (t *Tracker) Started() {
	t.inFlight.Inc()
}

func (t *Tracker) Finished() {
	t.inFlight.Dec()
	t.done.Inc()
}

func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Done:     t.done.Load(),
		InFlight: t.inFlight.Load(),
		Total:    t.total.Load(),
	}
}

// Run logs a progress line every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := t.Snapshot()
			_ = level.Info(t.log).Log("msg", "download progress",
				"done", s.String(),
				"in_flight", s.InFlight,
				"percent", fmt.Sprintf("%.1f", s.Percent()))
		}
	}
}
