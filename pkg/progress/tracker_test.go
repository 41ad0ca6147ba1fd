package progress

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
)

func TestTrackerCounts(t *testing.T) {
	tr := NewTracker(10, log.NewNopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Started()
			tr.Finished()
		}()
	}
	wg.Wait()

	s := tr.Snapshot()
	assert.Equal(t, int64(10), s.Done)
	assert.Equal(t, int64(0), s.InFlight)
	assert.Equal(t, "10/10", s.String())
	assert.Equal(t, 100.0, s.Percent())
}

func TestTrackerRunLogs(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(4, log.NewLogfmtLogger(log.NewSyncWriter(&buf)))
	tr.Started()
	tr.Finished()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	tr.Run(ctx, 5*time.Millisecond)

	assert.Contains(t, buf.String(), "done=1/4")
}

func TestEmptySnapshotIsComplete(t *testing.T) {
	assert.Equal(t, 100.0, Snapshot{}.Percent())
}
