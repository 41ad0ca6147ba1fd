package disclosure

import (
	"context"
	"flag"

	"github.com/ValerySidorin/disclosure/pkg/clerk"
	"github.com/ValerySidorin/disclosure/pkg/downloader"
	"github.com/ValerySidorin/disclosure/pkg/index"
	util_log "github.com/ValerySidorin/disclosure/pkg/util/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

type Config struct {
	Target          string `yaml:"target"`
	RecordsFile     string `yaml:"records_file"`
	MetricsTextfile string `yaml:"metrics_textfile"`

	Log        util_log.Config   `yaml:"log"`
	Clerk      clerk.Config      `yaml:"clerk"`
	Index      index.Config      `yaml:"index"`
	Downloader downloader.Config `yaml:"downloader"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.Target, "target", All, `Module to run. Supported values are: index, downloader, all.`)
	f.StringVar(&c.RecordsFile, "records-file", "data/documents.yml", `YAML list of records built by the index module and read by the downloader.`)
	f.StringVar(&c.MetricsTextfile, "metrics.textfile", "", `Write run metrics to this file in the Prometheus text format on exit. Empty disables it.`)

	c.Log.RegisterFlags(f)
	c.Clerk.RegisterFlags("clerk.", f)
	c.Index.RegisterFlags("index.", f)
	c.Downloader.RegisterFlags("downloader.", f)
}

func (c *Config) Validate() error {
	if !lo.Contains(validTargets, c.Target) {
		return errors.Errorf("invalid target %q", c.Target)
	}
	if c.RecordsFile == "" {
		return errors.New("records file is required")
	}
	if err := c.Clerk.Validate(); err != nil {
		return errors.Wrap(err, "invalid clerk config")
	}
	if c.Target != Downloader {
		if err := c.Index.Validate(); err != nil {
			return errors.Wrap(err, "invalid index config")
		}
	}
	if c.Target != Index {
		if err := c.Downloader.Validate(); err != nil {
			return errors.Wrap(err, "invalid downloader config")
		}
	}
	return nil
}

type Disclosure struct {
	Cfg        Config
	Registerer prometheus.Registerer

	// set during initialization
	ServiceMap    map[string]services.Service
	ModuleManager *modules.Manager

	Indexer    *index.Indexer
	Downloader *downloader.Downloader
}

func New(cfg Config, reg prometheus.Registerer) (*Disclosure, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Disclosure{
		Cfg:        cfg,
		Registerer: reg,
	}
	if err := d.setupModuleManager(); err != nil {
		return nil, errors.Wrap(err, "setup module manager")
	}
	return d, nil
}

// Run initializes the target and its dependencies, then runs each of them to
// completion in order. The first failing module stops the run.
func (d *Disclosure) Run(ctx context.Context) error {
	serviceMap, err := d.ModuleManager.InitModuleServices(d.Cfg.Target)
	if err != nil {
		return errors.Wrap(err, "init module services")
	}
	d.ServiceMap = serviceMap

	for _, name := range runOrder {
		if _, ok := serviceMap[name]; !ok {
			continue
		}

		svc := d.service(name)
		_ = level.Info(util_log.Logger).Log("msg", "running module", "module", name)
		if err := svc.StartAsync(ctx); err != nil {
			return errors.Wrapf(err, "start module %s", name)
		}
		if err := svc.AwaitTerminated(context.Background()); err != nil {
			return errors.Wrapf(err, "module %s", name)
		}
	}

	return nil
}
