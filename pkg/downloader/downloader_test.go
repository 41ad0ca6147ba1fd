package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ValerySidorin/disclosure/pkg/artifact"
	"github.com/ValerySidorin/disclosure/pkg/artifact/fs"
	"github.com/ValerySidorin/disclosure/pkg/clerk"
	"github.com/ValerySidorin/disclosure/pkg/index"
	"github.com/ValerySidorin/disclosure/pkg/notify"
	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/ValerySidorin/disclosure/pkg/report"
	reportstore "github.com/ValerySidorin/disclosure/pkg/report/store"
	"github.com/ValerySidorin/disclosure/pkg/report/store/file"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type testEnv struct {
	dir         string
	cfg         Config
	clerk       clerk.Config
	recordsFile string
	requests    *atomic.Int64
}

// newTestEnv serves doc 404 as missing, doc 403 as blocked, doc 500 as a
// server error and every other document as a PDF.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	requests := atomic.NewInt64(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Inc()
		switch {
		case strings.HasSuffix(r.URL.Path, "/404.pdf"):
			http.NotFound(w, r)
		case strings.HasSuffix(r.URL.Path, "/403.pdf"):
			w.WriteHeader(http.StatusForbidden)
		case strings.HasSuffix(r.URL.Path, "/500.pdf"):
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte("%PDF-1.4"))
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	return &testEnv{
		dir: dir,
		cfg: Config{
			Concurrency: 4,
			Timeout:     5 * time.Second,
			UserAgent:   "test-agent",
			Retry:       Policy{MaxAttempts: 3},
			Artifact: artifact.Config{
				Store: artifact.StoreFS,
				FS:    fs.Config{Dir: filepath.Join(dir, "reports")},
			},
			Report: reportstore.Config{
				Store: reportstore.StoreFile,
				File:  file.Config{Path: filepath.Join(dir, "report.yml")},
			},
		},
		clerk:       clerk.Config{BaseURL: srv.URL},
		recordsFile: filepath.Join(dir, "documents.yml"),
		requests:    requests,
	}
}

func (e *testEnv) seed(t *testing.T, r record.Record) {
	t.Helper()

	key, err := record.KeyFor(r)
	require.NoError(t, err)
	path := fs.NewStore(e.cfg.Artifact.FS, log.NewNopLogger()).Path(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
}

func (e *testEnv) run(t *testing.T, recs []record.Record) (*Downloader, *report.Report) {
	t.Helper()

	require.NoError(t, index.SaveRecords(e.recordsFile, recs))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d, err := New(ctx, e.cfg, e.clerk, e.recordsFile, prometheus.NewRegistry(), log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, d.StartAsync(ctx))
	require.NoError(t, d.AwaitTerminated(ctx))

	r, err := file.Load(e.cfg.Report.File.Path)
	require.NoError(t, err)
	return d, r
}

func TestDownloaderScenario(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, rec(100, "CA12"))

	_, r := env.run(t, []record.Record{rec(100, "CA12"), rec(101, "CA12")})

	assert.Equal(t, &report.Report{
		Successful: []uint64{101},
		Failed:     []uint64{},
		Blocked:    []uint64{},
		NotFound:   []uint64{},
	}, r)
	assert.Equal(t, int64(1), env.requests.Load())
}

func TestDownloaderExactlyOneOutcome(t *testing.T) {
	env := newTestEnv(t)
	recs := []record.Record{
		rec(1, "CA12"),
		rec(404, "NY3"),
		rec(403, "TX07"),
		rec(500, "AK00"),
		rec(2, "C"),
		rec(3, "CAxx"),
		rec(4, "WA09"),
	}

	d, r := env.run(t, recs)

	assert.Equal(t, []uint64{1, 4}, r.Successful)
	assert.Equal(t, []uint64{404}, r.NotFound)
	assert.Equal(t, []uint64{403}, r.Blocked)
	assert.Equal(t, []uint64{500}, r.Failed)

	all := append(append(append(append([]uint64{}, r.Successful...), r.NotFound...), r.Blocked...), r.Failed...)
	assert.Len(t, lo.Uniq(all), len(all))
	assert.NotContains(t, all, uint64(2))
	assert.NotContains(t, all, uint64(3))

	sum := d.Summary()
	assert.Equal(t, 5, sum.Total())
	assert.Equal(t, 2, sum.Invalid)
	assert.Zero(t, sum.Skipped)

	// 1 + 4 + 404 once each, 403 and 500 three times each.
	assert.Equal(t, int64(9), env.requests.Load())
}

func TestDownloaderIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	recs := []record.Record{rec(1, "CA12"), rec(2, "NY3"), rec(3, "TX07")}

	_, first := env.run(t, recs)
	assert.Equal(t, []uint64{1, 2, 3}, first.Successful)
	requests := env.requests.Load()

	d, second := env.run(t, recs)
	assert.Equal(t, requests, env.requests.Load())
	assert.Empty(t, second.Successful)
	assert.Equal(t, 3, d.Summary().AlreadyPresent)
}

func TestDownloaderMissingRecordsFileFails(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := New(ctx, env.cfg, env.clerk, filepath.Join(env.dir, "missing.yml"), nil, log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, d.StartAsync(ctx))
	assert.Error(t, d.AwaitTerminated(ctx))
}

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFakeFetcher(func(r record.Record, _ int) error {
		if r.DocID == 2 {
			return ErrNotFound
		}
		return nil
	})
	cfg := Config{Concurrency: 2, Retry: Policy{MaxAttempts: 3}}
	e := NewEngine(cfg, f, existsIn(), nil, nil, reg, log.NewNopLogger())

	agg, sum, err := e.Run(context.Background(), []record.Record{rec(1, "CA12"), rec(2, "CA12")})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1}, agg.Report().Successful)
	assert.Equal(t, 1, sum.NotFound)
	assert.Equal(t, float64(2), testutil.ToFloat64(e.metrics.attempts))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.documents.WithLabelValues("not_found")))
}

type failingConnector struct{}

func (failingConnector) Rotate(context.Context) error { return nil }

func (failingConnector) Connect(context.Context) error {
	return errors.New("vpn connect exited 1")
}

type trackingReports struct {
	disposed atomic.Bool
}

func (*trackingReports) Save(context.Context, *report.Report) error { return nil }

func (r *trackingReports) Dispose(context.Context) error {
	r.disposed.Store(true)
	return nil
}

type trackingPublisher struct {
	notify.Nop
	closed atomic.Bool
}

func (p *trackingPublisher) Close() error {
	p.closed.Store(true)
	return nil
}

func TestDownloaderFailedConnectReleasesResources(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := New(ctx, env.cfg, env.clerk, env.recordsFile, nil, log.NewNopLogger())
	require.NoError(t, err)

	reports := &trackingReports{}
	pub := &trackingPublisher{}
	d.reports = reports
	d.pub = pub
	d.rotator = failingConnector{}

	require.NoError(t, d.StartAsync(ctx))
	assert.Error(t, d.AwaitTerminated(ctx))

	assert.True(t, reports.disposed.Load())
	assert.True(t, pub.closed.Load())
}
