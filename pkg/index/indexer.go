package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ValerySidorin/disclosure/pkg/clerk"
	"github.com/ValerySidorin/disclosure/pkg/record"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
)

// Indexer is a run-once service that rebuilds the record list from the
// yearly index archives.
type Indexer struct {
	services.Service

	cfg         Config
	clerk       clerk.Config
	recordsFile string
	fetcher     *archiveFetcher
	log         gklog.Logger

	count int
}

func New(cfg Config, clerkCfg clerk.Config, recordsFile string, log gklog.Logger) *Indexer {
	log = gklog.With(log, "service", "index")

	i := &Indexer{
		cfg:         cfg,
		clerk:       clerkCfg,
		recordsFile: recordsFile,
		fetcher:     newArchiveFetcher(cfg, log),
		log:         log,
	}
	i.Service = services.NewBasicService(nil, i.running, nil)
	return i
}

func (i *Indexer) running(ctx context.Context) error {
	recs, err := i.Build(ctx)
	if err != nil {
		return err
	}

	if err := SaveRecords(i.recordsFile, recs); err != nil {
		return err
	}

	i.count = len(recs)
	_ = level.Info(i.log).Log("msg", "records saved", "file", i.recordsFile, "count", len(recs))
	return nil
}

// Build fetches and parses every configured year. A year that fails is
// logged and left out; only a run where every year fails is an error.
func (i *Indexer) Build(ctx context.Context) ([]record.Record, error) {
	years, err := i.cfg.years()
	if err != nil {
		return nil, err
	}

	all := make([]record.Record, 0)
	failed := 0
	for _, year := range years {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		recs, err := i.year(ctx, year)
		if err != nil {
			failed++
			_ = level.Error(i.log).Log("msg", "failed to build index", "year", year, "err", err)
			continue
		}

		_ = level.Info(i.log).Log("msg", "parsed index", "year", year, "records", len(recs))
		all = append(all, recs...)
	}

	if failed == len(years) {
		return nil, errors.New("index: no year could be built")
	}
	return all, nil
}

func (i *Indexer) year(ctx context.Context, year int) ([]record.Record, error) {
	name := fmt.Sprintf("%dFD", year)
	archive := filepath.Join(i.cfg.DataDir, name+".zip")
	xmlPath := filepath.Join(i.cfg.DataDir, name+".xml")

	if err := os.MkdirAll(i.cfg.DataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "index create data dir")
	}

	if err := i.fetcher.Download(ctx, archive, i.clerk.IndexURL(year)); err != nil {
		return nil, err
	}
	if err := extractXML(archive, xmlPath); err != nil {
		return nil, err
	}

	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, errors.Wrap(err, "index open xml")
	}
	defer f.Close()

	return ParseXML(f, i.log)
}

// Count is the number of records saved by the last run.
func (i *Indexer) Count() int {
	return i.count
}
