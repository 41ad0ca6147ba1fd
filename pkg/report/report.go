package report

import (
	"context"
	"fmt"

	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/pkg/errors"
)

type Outcome int

const (
	Success Outcome = iota
	NotFound
	Blocked
	Failed
)

var outcomeNames = map[Outcome]string{
	Success:  "success",
	NotFound: "not_found",
	Blocked:  "blocked",
	Failed:   "failed",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Report is the durable result of a run: one list of document ids per
// terminal outcome.
type Report struct {
	Successful []uint64 `yaml:"successful"`
	Failed     []uint64 `yaml:"failed"`
	Blocked    []uint64 `yaml:"blocked"`
	NotFound   []uint64 `yaml:"not_found"`
}

func New() *Report {
	return &Report{
		Successful: make([]uint64, 0),
		Failed:     make([]uint64, 0),
		Blocked:    make([]uint64, 0),
		NotFound:   make([]uint64, 0),
	}
}

func (r *Report) add(id uint64, o Outcome) {
	switch o {
	case Success:
		r.Successful = append(r.Successful, id)
	case NotFound:
		r.NotFound = append(r.NotFound, id)
	case Blocked:
		r.Blocked = append(r.Blocked, id)
	default:
		r.Failed = append(r.Failed, id)
	}
}

func (r *Report) Summary() Summary {
	return Summary{
		Successful: len(r.Successful),
		Failed:     len(r.Failed),
		Blocked:    len(r.Blocked),
		NotFound:   len(r.NotFound),
	}
}

type Summary struct {
	Successful int
	Failed     int
	Blocked    int
	NotFound   int
}

func (s Summary) Total() int {
	return s.Successful + s.Failed + s.Blocked + s.NotFound
}

func (s Summary) Keyvals() []interface{} {
	return []interface{}{
		"successful", s.Successful,
		"failed", s.Failed,
		"blocked", s.Blocked,
		"not_found", s.NotFound,
	}
}

// Saver persists a finished report.
type Saver interface {
	Save(ctx context.Context, r *Report) error
}

// Aggregator collects exactly one outcome per storage key. It is not safe
// for concurrent use; feed it after the workers are done.
type Aggregator struct {
	report *Report
	seen   map[record.StorageKey]Outcome
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		report: New(),
		seen:   make(map[record.StorageKey]Outcome),
	}
}

func (a *Aggregator) Add(key record.StorageKey, o Outcome) error {
	if prev, ok := a.seen[key]; ok {
		return errors.Errorf("report: %s already recorded as %s", key, prev)
	}

	a.seen[key] = o
	a.report.add(key.DocID, o)
	return nil
}

func (a *Aggregator) Report() *Report {
	return a.report
}

func (a *Aggregator) Summary() Summary {
	return a.report.Summary()
}

func (a *Aggregator) Persist(ctx context.Context, s Saver) (Summary, error) {
	if err := s.Save(ctx, a.report); err != nil {
		return Summary{}, errors.Wrap(err, "persist report")
	}

	return a.report.Summary(), nil
}
