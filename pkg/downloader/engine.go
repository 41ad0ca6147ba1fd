package downloader

import (
	"context"

	"github.com/ValerySidorin/disclosure/pkg/identity"
	"github.com/ValerySidorin/disclosure/pkg/notify"
	"github.com/ValerySidorin/disclosure/pkg/notify/message"
	"github.com/ValerySidorin/disclosure/pkg/progress"
	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/ValerySidorin/disclosure/pkg/report"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// RunSummary extends the report counts with what never reached the pool.
type RunSummary struct {
	report.Summary
	AlreadyPresent int
	Invalid        int
	Duplicates     int
	Skipped        int
}

func (s RunSummary) Keyvals() []interface{} {
	return append(s.Summary.Keyvals(),
		"already_present", s.AlreadyPresent,
		"invalid", s.Invalid,
		"duplicates", s.Duplicates,
		"skipped", s.Skipped)
}

// Engine drives one download run: dedup, bounded fetching with retries and
// outcome aggregation.
type Engine struct {
	cfg     Config
	exists  ExistsFunc
	retrier *retrier
	pub     notify.Publisher
	subject string
	metrics *metrics
	log     log.Logger
}

func NewEngine(cfg Config, fetcher Fetcher, exists ExistsFunc, rotator identity.Rotator, pub notify.Publisher, reg prometheus.Registerer, logger log.Logger) *Engine {
	if rotator == nil {
		rotator = identity.Nop{}
	}
	if pub == nil {
		pub = notify.Nop{}
	}
	subject := cfg.Notify.Subject
	if subject == "" {
		subject = notify.DefaultSubject
	}

	m := newMetrics(reg)
	return &Engine{
		cfg:     cfg,
		exists:  exists,
		retrier: &retrier{
			policy:  cfg.Retry,
			timeout: cfg.Timeout,
			fetcher: fetcher,
			rotator: rotator,
			metrics: m,
			log:     logger,
		},
		pub:     pub,
		subject: subject,
		metrics: m,
		log:     logger,
	}
}

// Run processes recs and returns the aggregated outcomes. Per-document
// failures end up in the report; only an inconsistent aggregation is an
// error.
func (e *Engine) Run(ctx context.Context, recs []record.Record) (*report.Aggregator, RunSummary, error) {
	part := Dedup(ctx, recs, e.exists, e.log)

	tracker := progress.NewTracker(len(part.ToFetch), e.log)
	progressCtx, stopProgress := context.WithCancel(ctx)
	go tracker.Run(progressCtx, e.cfg.ProgressInterval)

	results := schedule(ctx, part.ToFetch, e.cfg.concurrency(), e.retrier.Run, tracker)
	stopProgress()

	agg := report.NewAggregator()
	sum := RunSummary{
		AlreadyPresent: len(part.AlreadyPresent),
		Invalid:        part.Invalid,
		Duplicates:     part.Duplicates,
	}

	for _, res := range results {
		if res.Skipped {
			sum.Skipped++
			continue
		}

		if err := agg.Add(res.Key, res.Outcome); err != nil {
			return nil, RunSummary{}, errors.Wrap(err, "downloader aggregate outcome")
		}
		e.metrics.documents.WithLabelValues(res.Outcome.String()).Inc()
		e.publish(res)
	}

	if sum.Skipped > 0 {
		_ = level.Warn(e.log).Log("msg", "run cancelled before all documents started", "skipped", sum.Skipped)
	}

	sum.Summary = agg.Summary()
	return agg, sum, nil
}

func (e *Engine) publish(res Result) {
	msg := &message.Message{
		Year:    res.Record.Year,
		DocID:   res.Record.DocID,
		Outcome: res.Outcome,
	}
	if err := e.pub.Pub(e.subject, msg); err != nil {
		_ = level.Warn(e.log).Log("msg", "failed to publish outcome", "event", msg.String(), "err", err)
	}
}
