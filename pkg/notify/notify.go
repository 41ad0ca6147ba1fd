package notify

import (
	"flag"

	"github.com/ValerySidorin/disclosure/pkg/notify/message"
	"github.com/ValerySidorin/disclosure/pkg/notify/nats"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

const (
	TypeNone = ""
	TypeNats = "nats"

	DefaultSubject = "disclosure.outcome"
)

type Config struct {
	Type    string      `yaml:"type"`
	Subject string      `yaml:"subject"`
	Nats    nats.Config `yaml:"nats"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Type, flagPrefix+"type", TypeNone, `Queue outcome events are published to. Supported values are: nats. Empty disables publishing.`)
	f.StringVar(&c.Subject, flagPrefix+"subject", DefaultSubject, `Subject outcome events are published on.`)
	c.Nats.RegisterFlags(flagPrefix+"nats.", f)
}

type Publisher interface {
	Pub(subject string, msg *message.Message) error
	Close() error
}

func NewPublisher(cfg Config, log log.Logger) (Publisher, error) {
	switch cfg.Type {
	case TypeNone:
		return Nop{}, nil
	case TypeNats:
		return nats.NewNatsClient(cfg.Nats, log)
	default:
		return nil, errors.New("invalid queue type")
	}
}

type Nop struct{}

func (Nop) Pub(string, *message.Message) error { return nil }

func (Nop) Close() error { return nil }
