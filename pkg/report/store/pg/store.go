package pg

import (
	"context"
	"flag"
	"math"
	"time"

	"github.com/ValerySidorin/disclosure/pkg/report"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/flagext"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const tableName = "download_report"

type Config struct {
	Conn flagext.Secret `yaml:"conn"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.Var(&c.Conn, flagPrefix+"conn", `Postgres connection string`)
}

type Store struct {
	log  log.Logger
	conn *pgx.Conn
	now  func() time.Time
}

func NewStore(ctx context.Context, cfg Config, log log.Logger) (*Store, error) {
	conn, err := pgx.Connect(ctx, cfg.Conn.String())
	if err != nil {
		return nil, errors.Wrap(err, "pg report store init conn")
	}

	q := `create table if not exists public.download_report
	(run_id text not null, document_id bigint not null, outcome text not null, recorded_at timestamptz not null);`
	if _, err := conn.Exec(ctx, q); err != nil {
		_ = conn.Close(ctx)
		return nil, errors.Wrap(err, "pg report store init report table")
	}

	return &Store{
		log:  log,
		conn: conn,
		now:  time.Now,
	}, nil
}

// Save writes every id of the report as one row, all in one transaction, so
// a run is either fully recorded or not at all.
func (s *Store) Save(ctx context.Context, r *report.Report) error {
	at := s.now().UTC()
	runID := at.Format("20060102T150405.000Z")
	rows, err := reportRows(runID, at, r)
	if err != nil {
		return err
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "pg report store begin transaction")
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{tableName},
		[]string{"run_id", "document_id", "outcome", "recorded_at"},
		pgx.CopyFromRows(rows),
	); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			_ = level.Error(s.log).Log("msg", rbErr.Error())
		}
		return errors.Wrap(err, "pg report store copy rows")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "pg report store commit transaction")
	}

	_ = level.Debug(s.log).Log("msg", "report stored", "run_id", runID, "rows", len(rows))
	return nil
}

func (s *Store) Dispose(ctx context.Context) error {
	if err := s.conn.Close(ctx); err != nil {
		return errors.Wrap(err, "pg report store close connection")
	}

	return nil
}

// reportRows flattens r into table rows. document_id is a bigint, so ids
// above math.MaxInt64 are rejected rather than stored wrapped.
func reportRows(runID string, at time.Time, r *report.Report) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, r.Summary().Total())
	appendIDs := func(ids []uint64, o report.Outcome) error {
		for _, id := range ids {
			if id > math.MaxInt64 {
				return errors.Errorf("pg report store: document id %d out of bigint range", id)
			}
			rows = append(rows, []interface{}{runID, int64(id), o.String(), at})
		}
		return nil
	}

	for _, group := range []struct {
		ids     []uint64
		outcome report.Outcome
	}{
		{r.Successful, report.Success},
		{r.Failed, report.Failed},
		{r.Blocked, report.Blocked},
		{r.NotFound, report.NotFound},
	} {
		if err := appendIDs(group.ids, group.outcome); err != nil {
			return nil, err
		}
	}

	return rows, nil
}
