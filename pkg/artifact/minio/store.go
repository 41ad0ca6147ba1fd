package minio

import (
	"bytes"
	"context"
	"flag"

	"github.com/ValerySidorin/disclosure/pkg/record"
	util_io "github.com/ValerySidorin/disclosure/pkg/util/io"
	"github.com/go-kit/log"
	"github.com/grafana/dskit/flagext"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

const (
	contentType = "application/pdf"
	noSuchKey   = "NoSuchKey"
)

type Config struct {
	Endpoint  string         `yaml:"endpoint"`
	Bucket    string         `yaml:"bucket"`
	Prefix    string         `yaml:"prefix"`
	AccessKey string         `yaml:"access_key"`
	SecretKey flagext.Secret `yaml:"secret_key"`
	Secure    bool           `yaml:"secure"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Endpoint, flagPrefix+"endpoint", "", `Minio endpoint, host:port.`)
	f.StringVar(&c.Bucket, flagPrefix+"bucket", "disclosure", `Bucket for downloaded documents.`)
	f.StringVar(&c.Prefix, flagPrefix+"prefix", "reports/", `Object name prefix. Should end with a /.`)
	f.StringVar(&c.AccessKey, flagPrefix+"access-key", "", `Minio access key.`)
	f.Var(&c.SecretKey, flagPrefix+"secret-key", `Minio secret key.`)
	f.BoolVar(&c.Secure, flagPrefix+"secure", false, `Use TLS to talk to minio.`)
}

type Store struct {
	client *minio.Client
	bucket string
	prefix string
	log    log.Logger
}

func NewStore(ctx context.Context, cfg Config, log log.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, clientOptions(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "initialize minio client")
	}

	found, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "check minio bucket exists")
	}

	if !found {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "make minio bucket")
		}
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log,
	}, nil
}

func clientOptions(cfg Config) *minio.Options {
	return &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey.String(), ""),
		Secure: cfg.Secure,
	}
}

func (s *Store) objName(key record.StorageKey) string {
	return s.prefix + key.Path()
}

func (s *Store) Exists(ctx context.Context, key record.StorageKey) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.objName(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return false, nil
		}
		return false, errors.Wrap(err, "stat minio object")
	}

	return true, nil
}

// Put uploads the whole document in a single request; minio only makes an
// object visible once the upload completes.
func (s *Store) Put(ctx context.Context, key record.StorageKey, data []byte) error {
	r := bytes.NewReader(data)
	size, err := util_io.TryGetSize(r)
	if err != nil {
		return errors.Wrap(err, "store minio object")
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.objName(key), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrap(err, "store minio object")
	}

	return nil
}
