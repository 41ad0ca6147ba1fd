package clerk

import (
	"flag"
	"fmt"
	"net/url"
	"strings"

	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://disclosures-clerk.house.gov/public_disc"

	periodicPath = "ptr-pdfs"
	annualPath   = "financial-pdfs"
)

// Config describes the layout of the public disclosure archive.
type Config struct {
	BaseURL string `yaml:"base_url"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.BaseURL, flagPrefix+"base-url", DefaultBaseURL, `Base URL of the disclosure archive.`)
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.Wrap(err, "clerk base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Errorf("clerk base url %q must be absolute", c.BaseURL)
	}

	return nil
}

func (c Config) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

// IndexURL is the yearly index archive, e.g. .../financial-pdfs/2023FD.zip.
func (c Config) IndexURL(year int) string {
	return fmt.Sprintf("%s/%s/%dFD.zip", c.base(), annualPath, year)
}

// DocumentURL is where the PDF for r lives. Periodic transaction reports are
// kept apart from annual filings.
func (c Config) DocumentURL(r record.Record) string {
	path := annualPath
	if r.IsPeriodic() {
		path = periodicPath
	}

	return fmt.Sprintf("%s/%s/%d/%d%s", c.base(), path, r.Year, r.DocID, record.Extension)
}
