package downloader

import (
	"context"
	"flag"
	"math/rand"
	"time"

	"github.com/ValerySidorin/disclosure/pkg/identity"
	"github.com/ValerySidorin/disclosure/pkg/report"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Policy bounds how hard a single record is tried.
type Policy struct {
	// MaxAttempts counts every fetch, the first one included.
	MaxAttempts int `yaml:"max_attempts"`
	// BlockedMaxAttempts replaces MaxAttempts once the latest attempt was
	// blocked. 0 means MaxAttempts.
	BlockedMaxAttempts int           `yaml:"blocked_max_attempts"`
	Backoff            time.Duration `yaml:"backoff"`
	Jitter             time.Duration `yaml:"jitter"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     5 * time.Second,
	}
}

func (p *Policy) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	def := DefaultPolicy()
	f.IntVar(&p.MaxAttempts, flagPrefix+"max-attempts", def.MaxAttempts, `Total fetch attempts per document.`)
	f.IntVar(&p.BlockedMaxAttempts, flagPrefix+"blocked-max-attempts", def.BlockedMaxAttempts, `Total fetch attempts per document once the server blocks us. 0 uses max-attempts.`)
	f.DurationVar(&p.Backoff, flagPrefix+"backoff", def.Backoff, `Pause between attempts.`)
	f.DurationVar(&p.Jitter, flagPrefix+"jitter", def.Jitter, `Random extra pause of up to this long added to the backoff.`)
}

func (p *Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("retry: max attempts must be at least 1")
	}
	if p.BlockedMaxAttempts < 0 {
		return errors.New("retry: blocked max attempts must not be negative")
	}
	if p.Backoff < 0 || p.Jitter < 0 {
		return errors.New("retry: backoff and jitter must not be negative")
	}
	return nil
}

func (p Policy) limit(blocked bool) int {
	if blocked && p.BlockedMaxAttempts > 0 {
		return p.BlockedMaxAttempts
	}
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) delay() time.Duration {
	if p.Jitter <= 0 {
		return p.Backoff
	}
	return p.Backoff + time.Duration(rand.Int63n(int64(p.Jitter)+1))
}

type state int

const (
	stateStart state = iota
	stateRetryable
	stateTerminal
)

// next decides where a record goes after an attempt that returned err.
// attempts is the number of fetches made so far, the one that returned err
// included.
func (p Policy) next(err error, attempts int) (state, report.Outcome) {
	switch {
	case err == nil:
		return stateTerminal, report.Success
	case errors.Is(err, ErrNotFound):
		return stateTerminal, report.NotFound
	case isPersistence(err):
		return stateTerminal, report.Failed
	}

	blocked := isBlocked(err)
	if attempts < p.limit(blocked) {
		return stateRetryable, 0
	}
	if blocked {
		return stateTerminal, report.Blocked
	}
	return stateTerminal, report.Failed
}

// Result is the terminal state of one record.
type Result struct {
	Candidate
	Outcome   report.Outcome
	Attempts  int
	Rotations int
	Err       error
	// Skipped is set when the run was cancelled before the record started.
	// Skipped results carry no outcome.
	Skipped bool
}

type retrier struct {
	policy  Policy
	timeout time.Duration
	fetcher Fetcher
	rotator identity.Rotator
	metrics *metrics
	log     log.Logger
}

func (r *retrier) Run(ctx context.Context, c Candidate) Result {
	res := Result{Candidate: c}
	logger := log.With(r.log, "doc_id", c.Record.DocID, "year", c.Record.Year, "key", c.Key)

	st := stateStart
	for st != stateTerminal {
		switch st {
		case stateStart:
			if ctx.Err() != nil {
				if res.Attempts == 0 {
					res.Skipped = true
					return res
				}
				_ = level.Warn(logger).Log("msg", "run cancelled, no further attempts", "err", res.Err)
				st, res.Outcome = stateTerminal, report.Failed
				continue
			}

			res.Attempts++
			res.Err = r.attempt(c)

			st, res.Outcome = r.policy.next(res.Err, res.Attempts)
			if st == stateRetryable {
				_ = level.Warn(logger).Log("msg", "attempt failed, will retry", "attempt", res.Attempts, "err", res.Err)
			}

		case stateRetryable:
			if ctx.Err() != nil {
				_ = level.Warn(logger).Log("msg", "run cancelled, no further attempts", "err", res.Err)
				st, res.Outcome = stateTerminal, report.Failed
				continue
			}

			res.Rotations++
			if err := r.rotator.Rotate(ctx); err != nil {
				r.metrics.rotations.WithLabelValues("failure").Inc()
				_ = level.Warn(logger).Log("msg", "identity rotation failed", "err", err)
			} else {
				r.metrics.rotations.WithLabelValues("success").Inc()
			}

			if err := sleep(ctx, r.policy.delay()); err != nil {
				_ = level.Warn(logger).Log("msg", "retry interrupted", "err", err)
				st, res.Outcome = stateTerminal, report.Failed
				continue
			}
			st = stateStart
		}
	}

	logOutcome(logger, res)
	return res
}

// attempt runs one fetch on its own context so that cancelling the run lets
// an attempt already in flight finish. Only the timeout bounds it.
func (r *retrier) attempt(c Candidate) error {
	var (
		ctx    = context.Background()
		cancel context.CancelFunc
	)
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	r.metrics.attempts.Inc()
	r.metrics.inFlight.Inc()
	defer r.metrics.inFlight.Dec()

	return r.fetcher.Fetch(ctx, c.Record, c.Key)
}

func logOutcome(logger log.Logger, res Result) {
	keyvals := []interface{}{"msg", "document finished", "outcome", res.Outcome, "attempts", res.Attempts}
	switch res.Outcome {
	case report.Success, report.NotFound:
		_ = level.Info(logger).Log(keyvals...)
	default:
		_ = level.Error(logger).Log(append(keyvals, "err", res.Err)...)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

