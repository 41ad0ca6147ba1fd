package index

import (
	"flag"
	"strconv"
	"time"

	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
)

type Config struct {
	Years        flagext.StringSliceCSV `yaml:"years"`
	DataDir      string                 `yaml:"data_dir"`
	BufferSize   int                    `yaml:"buffer_size"`
	StallTimeout time.Duration          `yaml:"stall_timeout"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	c.Years = []string{"2022", "2023", "2024"}
	f.Var(&c.Years, flagPrefix+"years", `Comma separated list of index years to fetch.`)
	f.StringVar(&c.DataDir, flagPrefix+"data-dir", "data/raw/indexes", `Directory the index archives and their XML are kept in.`)
	f.IntVar(&c.BufferSize, flagPrefix+"buffer-size", 32*1024, `Buffer size used while downloading index archives.`)
	f.DurationVar(&c.StallTimeout, flagPrefix+"stall-timeout", 30*time.Second, `Cancel an index download that made no progress for this long.`)
}

func (c *Config) Validate() error {
	if _, err := c.years(); err != nil {
		return err
	}
	if c.DataDir == "" {
		return errors.New("index: data dir is required")
	}
	return nil
}

func (c *Config) years() ([]int, error) {
	if len(c.Years) == 0 {
		return nil, errors.New("index: at least one year is required")
	}

	years := make([]int, 0, len(c.Years))
	for _, y := range c.Years {
		year, err := strconv.Atoi(y)
		if err != nil || year < 1000 || year > 9999 {
			return nil, errors.Errorf("index: invalid year %q", y)
		}
		years = append(years, year)
	}
	return years, nil
}
