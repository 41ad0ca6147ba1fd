package index

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	util_io "github.com/ValerySidorin/disclosure/pkg/util/io"
	"github.com/cavaliergopher/grab/v3"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

type archiveFetcher struct {
	grabClient   *grab.Client
	stallTimeout time.Duration
	log          log.Logger
}

func newArchiveFetcher(cfg Config, log log.Logger) *archiveFetcher {
	c := grab.NewClient()
	c.BufferSize = cfg.BufferSize

	return &archiveFetcher{
		grabClient:   c,
		stallTimeout: cfg.StallTimeout,
		log:          log,
	}
}

// Download fetches url into dst, replacing whatever is there.
func (f *archiveFetcher) Download(ctx context.Context, dst string, url string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := grab.NewRequest(dst, url)
	if err != nil {
		return errors.Wrap(err, "index create request")
	}
	req = req.WithContext(ctx)
	req.NoResume = true

	_ = level.Info(f.log).Log("msg", fmt.Sprintf("start downloading file: %s", url))

	t := time.NewTicker(time.Second)
	defer t.Stop()

	resp := f.grabClient.Do(req)

	// A dropped connection does not always surface as an error, so a
	// download that stops moving is cancelled.
	if f.stallTimeout > 0 {
		go func() {
			t2 := time.NewTicker(f.stallTimeout)
			defer t2.Stop()

			prev := resp.BytesComplete()
			for {
				select {
				case <-t2.C:
					curr := resp.BytesComplete()
					if curr == prev {
						_ = level.Error(f.log).Log("msg", "index download stalled, canceling", "url", url)
						cancel()
						return
					}
					prev = curr
				case <-resp.Done:
					return
				}
			}
		}()
	}

Loop:
	for {
		select {
		case <-t.C:
			_ = level.Debug(f.log).Log("msg", fmt.Sprintf("transferred %d / %d bytes (%.2f%%)",
				resp.BytesComplete(),
				resp.Size(),
				100*resp.Progress()), "url", url)
		case <-resp.Done:
			break Loop
		}
	}

	if err := resp.Err(); err != nil {
		return errors.Wrap(err, "index download archive")
	}

	return nil
}

// extractXML copies the first XML entry of the zip archive at src to dst.
func extractXML(src string, dst string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return errors.Wrap(err, "index open archive")
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !strings.EqualFold(filepath.Ext(f.Name), ".xml") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(err, "index open %s", f.Name)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return errors.Wrapf(err, "index read %s", f.Name)
		}

		return util_io.WriteFileAtomic(dst, data, 0o644)
	}

	return errors.Errorf("index: no xml file in %s", src)
}
