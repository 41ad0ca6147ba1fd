package store

import (
	"context"
	"flag"

	"github.com/ValerySidorin/disclosure/pkg/report"
	"github.com/ValerySidorin/disclosure/pkg/report/store/file"
	"github.com/ValerySidorin/disclosure/pkg/report/store/pg"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

const (
	StoreFile = "file"
	StorePg   = "pg"
)

type Config struct {
	Store string      `yaml:"store"`
	File  file.Config `yaml:"file"`
	Pg    pg.Config   `yaml:"pg"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Store, flagPrefix+"store", StoreFile, `Where the download report is persisted. Supported values are: file, pg.`)
	c.File.RegisterFlags(flagPrefix+"file.", f)
	c.Pg.RegisterFlags(flagPrefix+"pg.", f)
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile:
		if c.File.Path == "" {
			return errors.New("report store: file path is required")
		}
	case StorePg:
		if c.Pg.Conn.String() == "" {
			return errors.New("report store: pg conn is required")
		}
	default:
		return errors.Errorf("report store: invalid store %q", c.Store)
	}

	return nil
}

type Store interface {
	report.Saver
	Dispose(ctx context.Context) error
}

func New(ctx context.Context, cfg Config, log log.Logger) (Store, error) {
	switch cfg.Store {
	case StoreFile:
		return file.NewStore(cfg.File, log), nil
	case StorePg:
		return pg.NewStore(ctx, cfg.Pg, log)
	default:
		return nil, errors.New("invalid report store in config")
	}
}
