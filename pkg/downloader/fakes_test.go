package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[uint64]int
	// respond returns the error for the nth (1-based) attempt of rec.
	respond func(rec record.Record, attempt int) error
}

func newFakeFetcher(respond func(rec record.Record, attempt int) error) *fakeFetcher {
	return &fakeFetcher{
		calls:   make(map[uint64]int),
		respond: respond,
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, rec record.Record, _ record.StorageKey) error {
	f.mu.Lock()
	f.calls[rec.DocID]++
	attempt := f.calls[rec.DocID]
	f.mu.Unlock()

	return f.respond(rec, attempt)
}

func (f *fakeFetcher) Calls(docID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[docID]
}

func (f *fakeFetcher) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

type countingRotator struct {
	count atomic.Int64
	err   error
}

func (r *countingRotator) Rotate(context.Context) error {
	r.count.Inc()
	return r.err
}

var errRotate = errors.New("rotate script exited 1")

func transient() error {
	return &TransientError{Status: 500, Err: errors.New("internal server error")}
}

func blocked() error {
	return &TransientError{Status: 403, Blocked: true, Err: errors.New("forbidden")}
}

func rec(docID uint64, stateDst string) record.Record {
	return record.Record{
		Last:       "Doe",
		First:      "Jane",
		FilingType: record.FilingTypeAnnual,
		StateDst:   stateDst,
		Year:       2023,
		FilingDate: "1/1/2023",
		DocID:      docID,
	}
}

func candidate(docID uint64) Candidate {
	r := rec(docID, "CA12")
	key, _ := record.KeyFor(r)
	return Candidate{Record: r, Key: key}
}

// ctxFetcher succeeds after delay unless its attempt context ends first.
type ctxFetcher struct {
	delay   time.Duration
	onStart func()
}

func (f *ctxFetcher) Fetch(ctx context.Context, _ record.Record, _ record.StorageKey) error {
	if f.onStart != nil {
		f.onStart()
	}

	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return &TransientError{Err: ctx.Err()}
	}
}
