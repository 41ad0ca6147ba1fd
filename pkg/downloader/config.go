package downloader

import (
	"flag"
	"time"

	"github.com/ValerySidorin/disclosure/pkg/artifact"
	"github.com/ValerySidorin/disclosure/pkg/identity"
	"github.com/ValerySidorin/disclosure/pkg/notify"
	reportstore "github.com/ValerySidorin/disclosure/pkg/report/store"
	"github.com/pkg/errors"
)

const (
	defaultConcurrency = 4
	defaultUserAgent   = "disclosure-downloader/1.0"
)

type Config struct {
	Concurrency      int           `yaml:"concurrency"`
	Timeout          time.Duration `yaml:"timeout"`
	RateLimit        float64       `yaml:"rate_limit"`
	RateBurst        int           `yaml:"rate_burst"`
	UserAgent        string        `yaml:"user_agent"`
	ProgressInterval time.Duration `yaml:"progress_interval"`

	Retry    Policy             `yaml:"retry"`
	Artifact artifact.Config    `yaml:"artifact"`
	Identity identity.Config    `yaml:"identity"`
	Report   reportstore.Config `yaml:"report"`
	Notify   notify.Config      `yaml:"notify"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.IntVar(&c.Concurrency, flagPrefix+"concurrency", defaultConcurrency, `Maximum number of documents fetched at the same time.`)
	f.DurationVar(&c.Timeout, flagPrefix+"timeout", 30*time.Second, `Timeout of a single fetch attempt.`)
	f.Float64Var(&c.RateLimit, flagPrefix+"rate-limit", 0, `Maximum fetch attempts per second across all workers. 0 disables the limit.`)
	f.IntVar(&c.RateBurst, flagPrefix+"rate-burst", 1, `Burst allowed by the rate limit.`)
	f.StringVar(&c.UserAgent, flagPrefix+"user-agent", defaultUserAgent, `User-Agent sent with every request.`)
	f.DurationVar(&c.ProgressInterval, flagPrefix+"progress-interval", 10*time.Second, `How often progress is logged. 0 disables progress logging.`)

	c.Retry.RegisterFlags(flagPrefix+"retry.", f)
	c.Artifact.RegisterFlags(flagPrefix+"artifact.", f)
	c.Identity.RegisterFlags(flagPrefix+"identity.", f)
	c.Report.RegisterFlags(flagPrefix+"report.", f)
	c.Notify.RegisterFlags(flagPrefix+"notify.", f)
}

func (c *Config) Validate() error {
	if c.RateLimit < 0 {
		return errors.New("downloader: rate limit must not be negative")
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	if err := c.Artifact.Validate(); err != nil {
		return err
	}
	return c.Report.Validate()
}

// concurrency never returns an unbounded or zero limit.
func (c *Config) concurrency() int {
	if c.Concurrency <= 0 {
		return defaultConcurrency
	}
	return c.Concurrency
}
