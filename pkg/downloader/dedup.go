package downloader

import (
	"context"

	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/samber/lo"
)

// ExistsFunc reports whether an artifact is already stored under key.
type ExistsFunc func(ctx context.Context, key record.StorageKey) (bool, error)

// Candidate is a valid record paired with its storage key.
type Candidate struct {
	Record record.Record
	Key    record.StorageKey
}

type Partition struct {
	ToFetch        []Candidate
	AlreadyPresent []Candidate
	Invalid        int
	Duplicates     int
}

// Dedup splits records into those that still need fetching and those already
// stored, keeping input order in both. Records with a malformed jurisdiction
// are logged and left out of both; repeated storage keys keep their first
// occurrence only.
func Dedup(ctx context.Context, recs []record.Record, exists ExistsFunc, logger log.Logger) Partition {
	var p Partition

	valid := lo.FilterMap(recs, func(r record.Record, _ int) (Candidate, bool) {
		key, err := record.KeyFor(r)
		if err != nil {
			_ = level.Warn(logger).Log("msg", "skipping invalid record", "doc_id", r.DocID, "year", r.Year, "state_dst", r.StateDst, "err", err)
			return Candidate{}, false
		}
		return Candidate{Record: r, Key: key}, true
	})
	p.Invalid = len(recs) - len(valid)

	unique := lo.UniqBy(valid, func(c Candidate) record.StorageKey {
		return c.Key
	})
	p.Duplicates = len(valid) - len(unique)
	if p.Duplicates > 0 {
		_ = level.Warn(logger).Log("msg", "dropped duplicate records", "count", p.Duplicates)
	}

	for _, c := range unique {
		found, err := exists(ctx, c.Key)
		if err != nil {
			_ = level.Warn(logger).Log("msg", "existence check failed, will fetch", "key", c.Key, "err", err)
		}

		if found {
			p.AlreadyPresent = append(p.AlreadyPresent, c)
		} else {
			p.ToFetch = append(p.ToFetch, c)
		}
	}

	_ = level.Info(logger).Log("msg", "filtered records",
		"to_fetch", len(p.ToFetch),
		"already_present", len(p.AlreadyPresent),
		"invalid", p.Invalid)

	return p
}
