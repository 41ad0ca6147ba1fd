package nats

import (
	"flag"
	"time"

	"github.com/ValerySidorin/disclosure/pkg/notify/message"
	"github.com/go-kit/log"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

type Config struct {
	Url     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Url, flagPrefix+"url", nats.DefaultURL, `NATS server url.`)
	f.DurationVar(&c.Timeout, flagPrefix+"timeout", nats.DefaultTimeout, `NATS connect timeout.`)
}

type NatsClient struct {
	conn *nats.Conn
	log  log.Logger
}

func NewNatsClient(cfg Config, log log.Logger) (*NatsClient, error) {
	conn, err := nats.Connect(cfg.Url, nats.Name("disclosure"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, errors.Wrap(err, "initialize nats connection")
	}

	return &NatsClient{
		conn: conn,
		log:  log,
	}, nil
}

func (n *NatsClient) Pub(subject string, msg *message.Message) error {
	if err := n.conn.Publish(subject, []byte(msg.String())); err != nil {
		return errors.Wrap(err, "nats publish")
	}

	return nil
}

// Close flushes pending messages before closing the connection.
func (n *NatsClient) Close() error {
	if err := n.conn.Drain(); err != nil {
		return errors.Wrap(err, "nats drain")
	}

	return nil
}
