package index

import (
	"os"

	"github.com/ValerySidorin/disclosure/pkg/record"
	util_io "github.com/ValerySidorin/disclosure/pkg/util/io"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// SaveRecords writes recs as a YAML list, replacing path atomically.
func SaveRecords(path string, recs []record.Record) error {
	data, err := yaml.Marshal(recs)
	if err != nil {
		return errors.Wrap(err, "index marshal records")
	}

	if err := util_io.WriteFileAtomic(path, data, 0o644); err != nil {
		return errors.Wrap(err, "index save records")
	}
	return nil
}

func LoadRecords(path string) ([]record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "index read records")
	}

	recs := make([]record.Record, 0)
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, errors.Wrap(err, "index unmarshal records")
	}
	return recs, nil
}
