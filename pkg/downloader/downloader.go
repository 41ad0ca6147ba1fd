package downloader

import (
	"context"
	"time"

	"github.com/ValerySidorin/disclosure/pkg/artifact"
	"github.com/ValerySidorin/disclosure/pkg/clerk"
	"github.com/ValerySidorin/disclosure/pkg/identity"
	"github.com/ValerySidorin/disclosure/pkg/index"
	"github.com/ValerySidorin/disclosure/pkg/notify"
	reportstore "github.com/ValerySidorin/disclosure/pkg/report/store"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Downloader is a run-once service: it loads the record list, fetches what
// is missing and persists the report, then terminates.
type Downloader struct {
	services.Service

	cfg         Config
	recordsFile string
	log         gklog.Logger

	store   artifact.Store
	reports reportstore.Store
	pub     notify.Publisher
	rotator identity.Rotator
	engine  *Engine

	summary RunSummary
}

func New(ctx context.Context, cfg Config, clerkCfg clerk.Config, recordsFile string, reg prometheus.Registerer, log gklog.Logger) (*Downloader, error) {
	log = gklog.With(log, "service", "downloader")

	store, err := artifact.NewStore(ctx, cfg.Artifact, log)
	if err != nil {
		return nil, errors.Wrap(err, "downloader init artifact store")
	}

	reports, err := reportstore.New(ctx, cfg.Report, log)
	if err != nil {
		return nil, errors.Wrap(err, "downloader init report store")
	}

	pub, err := notify.NewPublisher(cfg.Notify, log)
	if err != nil {
		_ = reports.Dispose(ctx)
		return nil, errors.Wrap(err, "downloader init publisher")
	}

	rotator := identity.New(cfg.Identity, log)
	fetcher := NewHTTPFetcher(cfg, clerkCfg, store, log)

	d := &Downloader{
		cfg:         cfg,
		recordsFile: recordsFile,
		log:         log,
		store:       store,
		reports:     reports,
		pub:         pub,
		rotator:     rotator,
		engine:      NewEngine(cfg, fetcher, store.Exists, rotator, pub, reg, log),
	}

	d.Service = services.NewBasicService(d.starting, d.running, d.stopping)
	return d, nil
}

func (d *Downloader) starting(ctx context.Context) error {
	conn, ok := d.rotator.(identity.Connector)
	if !ok {
		return nil
	}

	if err := conn.Connect(ctx); err != nil {
		// stopping is not called for a service that failed to start.
		d.close()
		return errors.Wrap(err, "downloader connect identity")
	}
	_ = level.Info(d.log).Log("msg", "identity connected")
	return nil
}

func (d *Downloader) running(ctx context.Context) error {
	recs, err := index.LoadRecords(d.recordsFile)
	if err != nil {
		return errors.Wrap(err, "downloader load records")
	}
	_ = level.Info(d.log).Log("msg", "loaded records", "count", len(recs), "file", d.recordsFile)

	start := time.Now()
	agg, sum, err := d.engine.Run(ctx, recs)
	if err != nil {
		return err
	}

	// A cancelled run still persists its partial report.
	if _, err := agg.Persist(context.Background(), d.reports); err != nil {
		return errors.Wrap(err, "downloader")
	}

	d.summary = sum
	_ = level.Info(d.log).Log(append([]interface{}{"msg", "download finished", "duration", time.Since(start)}, sum.Keyvals()...)...)
	return nil
}

func (d *Downloader) stopping(_ error) error {
	d.close()
	return nil
}

func (d *Downloader) close() {
	if err := d.reports.Dispose(context.Background()); err != nil {
		_ = level.Error(d.log).Log("msg", "failed to dispose report store", "err", err)
	}
	if err := d.pub.Close(); err != nil {
		_ = level.Error(d.log).Log("msg", "failed to close publisher", "err", err)
	}
}

// Summary is valid once the service has terminated.
func (d *Downloader) Summary() RunSummary {
	return d.summary
}

