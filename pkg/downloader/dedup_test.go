package downloader

import (
	"context"
	"testing"

	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func existsIn(present ...uint64) ExistsFunc {
	return func(_ context.Context, key record.StorageKey) (bool, error) {
		return lo.Contains(present, key.DocID), nil
	}
}

func docIDs(cs []Candidate) []uint64 {
	return lo.Map(cs, func(c Candidate, _ int) uint64 {
		return c.Record.DocID
	})
}

func TestDedupSplitsPresentAndMissing(t *testing.T) {
	recs := []record.Record{rec(100, "CA12"), rec(101, "CA12")}

	p := Dedup(context.Background(), recs, existsIn(100), log.NewNopLogger())

	assert.Equal(t, []uint64{101}, docIDs(p.ToFetch))
	assert.Equal(t, []uint64{100}, docIDs(p.AlreadyPresent))
	assert.Zero(t, p.Invalid)
	assert.Zero(t, p.Duplicates)
}

func TestDedupPreservesOrder(t *testing.T) {
	recs := []record.Record{rec(5, "CA12"), rec(3, "NY3"), rec(9, "TX07"), rec(1, "AK00"), rec(4, "CA12")}

	p := Dedup(context.Background(), recs, existsIn(3, 1), log.NewNopLogger())

	assert.Equal(t, []uint64{5, 9, 4}, docIDs(p.ToFetch))
	assert.Equal(t, []uint64{3, 1}, docIDs(p.AlreadyPresent))
}

func TestDedupDropsInvalidJurisdictions(t *testing.T) {
	recs := []record.Record{rec(1, "CA"), rec(2, "CAxx"), rec(3, ""), rec(4, "CA12")}

	p := Dedup(context.Background(), recs, existsIn(), log.NewNopLogger())

	assert.Equal(t, []uint64{4}, docIDs(p.ToFetch))
	assert.Empty(t, p.AlreadyPresent)
	assert.Equal(t, 3, p.Invalid)
}

func TestDedupCollapsesDuplicateKeys(t *testing.T) {
	other := rec(100, "CA12")
	other.Year = 2022
	recs := []record.Record{rec(100, "CA12"), rec(100, "CA12"), other}

	p := Dedup(context.Background(), recs, existsIn(), log.NewNopLogger())

	assert.Len(t, p.ToFetch, 2)
	assert.Equal(t, 1, p.Duplicates)
	assert.Equal(t, 2023, p.ToFetch[0].Record.Year)
	assert.Equal(t, 2022, p.ToFetch[1].Record.Year)
}

func TestDedupExistenceErrorMeansFetch(t *testing.T) {
	exists := func(context.Context, record.StorageKey) (bool, error) {
		return false, errors.New("permission denied")
	}

	p := Dedup(context.Background(), []record.Record{rec(7, "CA12")}, exists, log.NewNopLogger())

	assert.Equal(t, []uint64{7}, docIDs(p.ToFetch))
}
