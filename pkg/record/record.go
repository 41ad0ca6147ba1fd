package record

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

const (
	// FilingTypePeriodic marks a periodic transaction report. These live under
	// a different archive path than annual and other filings.
	FilingTypePeriodic = "P"
	FilingTypeAnnual   = "A"

	Extension = ".pdf"
)

var ErrInvalidRecord = errors.New("invalid record")

// Record is one entry of the disclosure index. Field names follow the index
// XML so the same struct decodes both the index and the saved record list.
type Record struct {
	Prefix     string `yaml:"Prefix,omitempty" xml:"Prefix"`
	Last       string `yaml:"Last" xml:"Last"`
	First      string `yaml:"First" xml:"First"`
	Suffix     string `yaml:"Suffix,omitempty" xml:"Suffix"`
	FilingType string `yaml:"FilingType" xml:"FilingType"`
	StateDst   string `yaml:"StateDst" xml:"StateDst"`
	Year       int    `yaml:"Year" xml:"Year"`
	FilingDate string `yaml:"FilingDate" xml:"FilingDate"`
	DocID      uint64 `yaml:"DocID" xml:"DocID"`
}

func (r Record) IsPeriodic() bool {
	return r.FilingType == FilingTypePeriodic
}

func (r Record) String() string {
	return fmt.Sprintf("%d/%d (%s %s, %s)", r.Year, r.DocID, r.First, r.Last, r.StateDst)
}

// StorageKey locates a downloaded document. DocID is only unique within a
// year, so all four parts take part in identity.
type StorageKey struct {
	Region   string
	District int
	Year     int
	DocID    uint64
}

// Path renders the key as a slash separated relative path.
func (k StorageKey) Path() string {
	return fmt.Sprintf("%s/%02d/%d/%d%s", k.Region, k.District, k.Year, k.DocID, Extension)
}

func (k StorageKey) String() string {
	return k.Path()
}

func KeyFor(r Record) (StorageKey, error) {
	region, district, err := ParseJurisdiction(r.StateDst)
	if err != nil {
		return StorageKey{}, errors.Wrapf(err, "record %d", r.DocID)
	}

	return StorageKey{
		Region:   region,
		District: district,
		Year:     r.Year,
		DocID:    r.DocID,
	}, nil
}

// ParseJurisdiction splits a code like "CA12" into its two letter region
// and numeric district. The district must fit in two digits.
func ParseJurisdiction(code string) (string, int, error) {
	if len(code) < 3 {
		return "", 0, errors.Wrapf(ErrInvalidRecord, "jurisdiction %q is too short", code)
	}

	region := code[:2]
	for i := 0; i < len(region); i++ {
		c := region[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return "", 0, errors.Wrapf(ErrInvalidRecord, "jurisdiction %q has invalid region", code)
		}
	}

	district, err := strconv.ParseUint(code[2:], 10, 8)
	if err != nil || district > 99 {
		return "", 0, errors.Wrapf(ErrInvalidRecord, "jurisdiction %q has invalid district", code)
	}

	return region, int(district), nil
}
