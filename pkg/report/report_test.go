package report

import (
	"context"
	"testing"

	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSaver struct {
	saved []*Report
	err   error
}

func (m *memSaver) Save(_ context.Context, r *Report) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

func key(id uint64) record.StorageKey {
	return record.StorageKey{Region: "CA", District: 12, Year: 2023, DocID: id}
}

func TestAggregatorRoutesOutcomes(t *testing.T) {
	a := NewAggregator()
	require.NoError(t, a.Add(key(1), Success))
	require.NoError(t, a.Add(key(2), NotFound))
	require.NoError(t, a.Add(key(3), Blocked))
	require.NoError(t, a.Add(key(4), Failed))
	require.NoError(t, a.Add(key(5), Success))

	r := a.Report()
	assert.Equal(t, []uint64{1, 5}, r.Successful)
	assert.Equal(t, []uint64{2}, r.NotFound)
	assert.Equal(t, []uint64{3}, r.Blocked)
	assert.Equal(t, []uint64{4}, r.Failed)
	assert.Equal(t, 5, a.Summary().Total())
}

func TestAggregatorRejectsSecondOutcome(t *testing.T) {
	a := NewAggregator()
	require.NoError(t, a.Add(key(1), Success))

	assert.Error(t, a.Add(key(1), Failed))
	assert.Equal(t, []uint64{1}, a.Report().Successful)
	assert.Empty(t, a.Report().Failed)
}

func TestAggregatorSameIDDifferentYear(t *testing.T) {
	a := NewAggregator()
	k := key(1)
	require.NoError(t, a.Add(k, Success))
	k.Year = 2022
	require.NoError(t, a.Add(k, NotFound))

	assert.Equal(t, 2, a.Summary().Total())
}

func TestAggregatorPersist(t *testing.T) {
	a := NewAggregator()
	require.NoError(t, a.Add(key(9), Blocked))

	s := &memSaver{}
	summary, err := a.Persist(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Blocked)
	require.Len(t, s.saved, 1)

	_, err = a.Persist(context.Background(), &memSaver{err: errors.New("disk full")})
	assert.Error(t, err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "blocked", Blocked.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
