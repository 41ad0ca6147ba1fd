package record

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJurisdiction(t *testing.T) {
	tests := []struct {
		code     string
		region   string
		district int
		valid    bool
	}{
		{"CA12", "CA", 12, true},
		{"NY3", "NY", 3, true},
		{"AK00", "AK", 0, true},
		{"TX07", "TX", 7, true},
		{"", "", 0, false},
		{"CA", "", 0, false},
		{"C1", "", 0, false},
		{"CAxx", "", 0, false},
		{"CA-1", "", 0, false},
		{"CA100", "", 0, false},
		{"1212", "", 0, false},
	}

	for _, tt := range tests {
		region, district, err := ParseJurisdiction(tt.code)
		if !tt.valid {
			assert.Error(t, err, tt.code)
			assert.True(t, errors.Is(err, ErrInvalidRecord), tt.code)
			continue
		}

		require.NoError(t, err, tt.code)
		assert.Equal(t, tt.region, region)
		assert.Equal(t, tt.district, district)
	}
}

func TestKeyForPadsDistrict(t *testing.T) {
	key, err := KeyFor(Record{StateDst: "NY3", Year: 2023, DocID: 20022236})
	require.NoError(t, err)

	assert.Equal(t, "NY/03/2023/20022236.pdf", key.Path())
}

func TestKeyForDistinguishesYears(t *testing.T) {
	a, err := KeyFor(Record{StateDst: "CA12", Year: 2022, DocID: 100})
	require.NoError(t, err)
	b, err := KeyFor(Record{StateDst: "CA12", Year: 2023, DocID: 100})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a.Path(), b.Path())
}

func TestKeyForInvalid(t *testing.T) {
	_, err := KeyFor(Record{StateDst: "C", Year: 2023, DocID: 1})
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}
