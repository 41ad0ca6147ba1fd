package file

import (
	"context"
	"flag"
	"os"

	"github.com/ValerySidorin/disclosure/pkg/report"
	util_io "github.com/ValerySidorin/disclosure/pkg/util/io"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Path string `yaml:"path"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Path, flagPrefix+"path", "data/report.yml", `YAML file the download report is written to.`)
}

type Store struct {
	path string
	log  log.Logger
}

func NewStore(cfg Config, log log.Logger) *Store {
	return &Store{
		path: cfg.Path,
		log:  log,
	}
}

func (s *Store) Save(_ context.Context, r *report.Report) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "file report store marshal")
	}

	if err := util_io.WriteFileAtomic(s.path, out, 0o644); err != nil {
		return errors.Wrap(err, "file report store write")
	}

	_ = level.Debug(s.log).Log("msg", "report written", "path", s.path)
	return nil
}

func Load(path string) (*report.Report, error) {
	r := report.New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "file report store read")
	}

	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, errors.Wrap(err, "file report store unmarshal")
	}

	return r, nil
}

func (s *Store) Dispose(context.Context) error {
	return nil
}
