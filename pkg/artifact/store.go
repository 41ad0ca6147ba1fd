package artifact

import (
	"context"
	"flag"

	"github.com/ValerySidorin/disclosure/pkg/artifact/fs"
	"github.com/ValerySidorin/disclosure/pkg/artifact/minio"
	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

const (
	StoreFS    = "fs"
	StoreMinio = "minio"
)

type Config struct {
	Store string       `yaml:"store"`
	FS    fs.Config    `yaml:"fs"`
	Minio minio.Config `yaml:"minio"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Store, flagPrefix+"store", StoreFS, `Storage for downloaded documents. Supported values are: fs, minio.`)
	c.FS.RegisterFlags(flagPrefix+"fs.", f)
	c.Minio.RegisterFlags(flagPrefix+"minio.", f)
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreFS:
		if c.FS.Dir == "" {
			return errors.New("artifact store: fs dir is required")
		}
	case StoreMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return errors.New("artifact store: minio endpoint and bucket are required")
		}
	default:
		return errors.Errorf("artifact store: invalid store %q", c.Store)
	}

	return nil
}

// Store holds downloaded documents by storage key. Exists must only look at
// metadata, never at document contents. Put must be all-or-nothing.
type Store interface {
	Exists(ctx context.Context, key record.StorageKey) (bool, error)
	Put(ctx context.Context, key record.StorageKey, data []byte) error
}

func NewStore(ctx context.Context, cfg Config, log log.Logger) (Store, error) {
	switch cfg.Store {
	case StoreFS:
		return fs.NewStore(cfg.FS, log), nil
	case StoreMinio:
		return minio.NewStore(ctx, cfg.Minio, log)
	}

	return nil, errors.Errorf("invalid artifact store: %q", cfg.Store)
}
