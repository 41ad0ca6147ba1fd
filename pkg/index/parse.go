package index

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const memberElement = "Member"

// member is a <Member> entry as found in the index, before any field is
// interpreted.
type member struct {
	Prefix     string `xml:"Prefix"`
	Last       string `xml:"Last"`
	First      string `xml:"First"`
	Suffix     string `xml:"Suffix"`
	FilingType string `xml:"FilingType"`
	StateDst   string `xml:"StateDst"`
	Year       string `xml:"Year"`
	FilingDate string `xml:"FilingDate"`
	DocID      string `xml:"DocID"`
}

func (m member) record() (record.Record, error) {
	year, err := strconv.Atoi(strings.TrimSpace(m.Year))
	if err != nil {
		return record.Record{}, errors.Wrapf(record.ErrInvalidRecord, "year %q", m.Year)
	}
	docID, err := strconv.ParseUint(strings.TrimSpace(m.DocID), 10, 64)
	if err != nil {
		return record.Record{}, errors.Wrapf(record.ErrInvalidRecord, "doc id %q", m.DocID)
	}

	return record.Record{
		Prefix:     strings.TrimSpace(m.Prefix),
		Last:       strings.TrimSpace(m.Last),
		First:      strings.TrimSpace(m.First),
		Suffix:     strings.TrimSpace(m.Suffix),
		FilingType: strings.TrimSpace(m.FilingType),
		StateDst:   strings.TrimSpace(m.StateDst),
		Year:       year,
		FilingDate: strings.TrimSpace(m.FilingDate),
		DocID:      docID,
	}, nil
}

// ParseXML streams <Member> entries out of an index document. Entries whose
// year or document id do not parse are logged and skipped; jurisdiction is
// left for the downloader to judge.
func ParseXML(r io.Reader, logger log.Logger) ([]record.Record, error) {
	dec := xml.NewDecoder(r)
	recs := make([]record.Record, 0)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "index parse xml")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != memberElement {
			continue
		}

		var m member
		if err := dec.DecodeElement(&m, &se); err != nil {
			return nil, errors.Wrap(err, "index decode member")
		}

		rec, err := m.record()
		if err != nil {
			_ = level.Warn(logger).Log("msg", "skipping index entry", "last", m.Last, "doc_id", m.DocID, "err", err)
			continue
		}
		recs = append(recs, rec)
	}
}
