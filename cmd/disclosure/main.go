package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ValerySidorin/disclosure/pkg/disclosure"
	util_log "github.com/ValerySidorin/disclosure/pkg/util/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/yaml.v2"
)

const configFileOption = "config.file"

func main() {
	var cfg disclosure.Config
	if err := loadConfig(&cfg, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		os.Exit(1)
	}

	util_log.InitLogger(&cfg.Log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	d, err := disclosure.New(cfg, reg)
	util_log.CheckFatal("initializing application", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = level.Info(util_log.Logger).Log("msg", "starting disclosure", "target", cfg.Target)
	runErr := d.Run(ctx)

	if cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsTextfile, reg); err != nil {
			_ = level.Error(util_log.Logger).Log("msg", "failed to write metrics textfile", "err", err)
		}
	}

	util_log.CheckFatal("running disclosure", runErr)
	_ = level.Info(util_log.Logger).Log("msg", "disclosure finished")
}

// loadConfig applies flag defaults, then the YAML file named by
// -config.file, then the command line flags again so they win over the file.
func loadConfig(cfg *disclosure.Config, args []string) error {
	configFile := configFileFromArgs(args)

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.String(configFileOption, "", "YAML configuration file.")
	cfg.RegisterFlags(fs)

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return errors.Wrap(err, "read config file")
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return errors.Wrap(err, "parse config file")
		}
	}

	return fs.Parse(args)
}

func configFileFromArgs(args []string) string {
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name != configFileOption {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
