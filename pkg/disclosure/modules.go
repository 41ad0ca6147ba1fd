package disclosure

import (
	"context"

	"github.com/ValerySidorin/disclosure/pkg/downloader"
	"github.com/ValerySidorin/disclosure/pkg/index"
	util_log "github.com/ValerySidorin/disclosure/pkg/util/log"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/services"
)

const (
	Index      = "index"
	Downloader = "downloader"
	All        = "all"
)

var (
	validTargets = []string{Index, Downloader, All}
	runOrder     = []string{Index, Downloader}
)

func (d *Disclosure) initIndex() (services.Service, error) {
	d.Indexer = index.New(d.Cfg.Index, d.Cfg.Clerk, d.Cfg.RecordsFile, util_log.Logger)
	return d.Indexer, nil
}

func (d *Disclosure) initDownloader() (services.Service, error) {
	var err error
	d.Downloader, err = downloader.New(context.Background(), d.Cfg.Downloader, d.Cfg.Clerk, d.Cfg.RecordsFile, d.Registerer, util_log.Logger)
	if err != nil {
		return nil, err
	}

	return d.Downloader, nil
}

// service returns the module's own service. The wrappers built by the module
// manager expect long running services, run-once modules are driven directly.
func (d *Disclosure) service(name string) services.Service {
	switch name {
	case Index:
		return d.Indexer
	case Downloader:
		return d.Downloader
	}
	return nil
}

func (d *Disclosure) setupModuleManager() error {
	mm := modules.NewManager(util_log.Logger)

	mm.RegisterModule(Index, d.initIndex, modules.UserInvisibleTargetableModule)
	mm.RegisterModule(Downloader, d.initDownloader, modules.UserInvisibleTargetableModule)
	mm.RegisterModule(All, nil)

	deps := map[string][]string{
		All: {Index, Downloader},
	}
	for mod, targets := range deps {
		if err := mm.AddDependency(mod, targets...); err != nil {
			return err
		}
	}

	d.ModuleManager = mm
	return nil
}
