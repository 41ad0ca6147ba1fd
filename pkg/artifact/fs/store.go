package fs

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/ValerySidorin/disclosure/pkg/record"
	util_io "github.com/ValerySidorin/disclosure/pkg/util/io"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

type Config struct {
	Dir string `yaml:"dir"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Dir, flagPrefix+"dir", "data/raw/reports", `Root directory for downloaded documents.`)
}

type Store struct {
	dir string
	log log.Logger
}

func NewStore(cfg Config, log log.Logger) *Store {
	return &Store{
		dir: cfg.Dir,
		log: log,
	}
}

func (s *Store) Path(key record.StorageKey) string {
	return filepath.Join(s.dir, filepath.FromSlash(key.Path()))
}

func (s *Store) Exists(_ context.Context, key record.StorageKey) (bool, error) {
	info, err := os.Stat(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrap(err, "fs store stat")
	}

	return info.Mode().IsRegular(), nil
}

func (s *Store) Put(_ context.Context, key record.StorageKey, data []byte) error {
	if err := util_io.WriteFileAtomic(s.Path(key), data, 0o644); err != nil {
		return errors.Wrapf(err, "fs store put %s", key)
	}

	return nil
}
