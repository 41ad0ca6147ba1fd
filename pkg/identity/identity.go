package identity

import (
	"context"
	"flag"
	"os/exec"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Rotator changes the apparent network origin of subsequent requests.
// Rotation is best-effort: callers log its errors and carry on.
type Rotator interface {
	Rotate(ctx context.Context) error
}

// Connector is implemented by rotators that need to establish an identity
// before the first request.
type Connector interface {
	Connect(ctx context.Context) error
}

type Config struct {
	ConnectCommand string        `yaml:"connect_command"`
	RotateCommand  string        `yaml:"rotate_command"`
	Timeout        time.Duration `yaml:"timeout"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.ConnectCommand, flagPrefix+"connect-command", "", `Command run once before downloading, e.g. scripts/connect_vpn.sh. Empty disables it.`)
	f.StringVar(&c.RotateCommand, flagPrefix+"rotate-command", "", `Command run between retry attempts, e.g. scripts/rotate_vpn.sh. Empty disables rotation.`)
	f.DurationVar(&c.Timeout, flagPrefix+"timeout", time.Minute, `Maximum time a connect or rotate command may take.`)
}

// New builds the rotator described by cfg. Without any command it returns
// Nop.
func New(cfg Config, logger log.Logger) Rotator {
	if cfg.ConnectCommand == "" && cfg.RotateCommand == "" {
		return Nop{}
	}

	return NewCoalescing(NewCommand(cfg, logger), logger)
}

type Nop struct{}

func (Nop) Rotate(context.Context) error { return nil }

// Command runs external scripts to connect and rotate.
type Command struct {
	cfg Config
	log log.Logger
}

func NewCommand(cfg Config, logger log.Logger) *Command {
	return &Command{
		cfg: cfg,
		log: log.With(logger, "component", "identity"),
	}
}

func (c *Command) Connect(ctx context.Context) error {
	if c.cfg.ConnectCommand == "" {
		return nil
	}

	return c.run(ctx, c.cfg.ConnectCommand)
}

func (c *Command) Rotate(ctx context.Context) error {
	if c.cfg.RotateCommand == "" {
		return nil
	}

	return c.run(ctx, c.cfg.RotateCommand)
}

func (c *Command) run(ctx context.Context, command string) error {
	args := strings.Fields(command)
	if len(args) == 0 {
		return errors.New("identity: empty command")
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "identity: run %s: %s", args[0], strings.TrimSpace(string(out)))
	}

	_ = level.Debug(c.log).Log("msg", "identity command finished", "command", args[0], "duration", time.Since(start))
	return nil
}

// Coalescing lets many workers ask for a rotation at once while only one
// rotation runs; callers that arrive during it share its result. A rotation
// can still land in the middle of another worker's attempt.
type Coalescing struct {
	next  Rotator
	group singleflight.Group
	log   log.Logger
}

func NewCoalescing(next Rotator, logger log.Logger) *Coalescing {
	return &Coalescing{
		next: next,
		log:  log.With(logger, "component", "identity"),
	}
}

func (c *Coalescing) Rotate(ctx context.Context) error {
	_, err, shared := c.group.Do("rotate", func() (interface{}, error) {
		return nil, c.next.Rotate(ctx)
	})
	if shared {
		_ = level.Debug(c.log).Log("msg", "joined in-flight identity rotation")
	}

	return err
}

func (c *Coalescing) Connect(ctx context.Context) error {
	if conn, ok := c.next.(Connector); ok {
		return conn.Connect(ctx)
	}

	return nil
}
