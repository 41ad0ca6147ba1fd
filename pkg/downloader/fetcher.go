package downloader

import (
	"context"
	"io"
	"net/http"

	"github.com/ValerySidorin/disclosure/pkg/artifact"
	"github.com/ValerySidorin/disclosure/pkg/clerk"
	"github.com/ValerySidorin/disclosure/pkg/record"
	util_http "github.com/ValerySidorin/disclosure/pkg/util/http"
	util_log "github.com/ValerySidorin/disclosure/pkg/util/log"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Fetcher makes one remote attempt for one record. It returns nil when the
// document was stored, ErrNotFound, a *TransientError or a
// *PersistenceError.
type Fetcher interface {
	Fetch(ctx context.Context, rec record.Record, key record.StorageKey) error
}

type HTTPFetcher struct {
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
	clerk      clerk.Config
	store      artifact.Store
	userAgent  string
	log        log.Logger
}

func NewHTTPFetcher(cfg Config, clerkCfg clerk.Config, store artifact.Store, logger log.Logger) *HTTPFetcher {
	c := retryablehttp.NewClient()
	// Retries are owned by the retry controller, one call is one attempt.
	c.RetryMax = 0
	c.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, nil
	}
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.HTTPClient.Timeout = cfg.Timeout
	c.Logger = util_log.NewLeveledLogger(logger)

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPFetcher{
		httpClient: c,
		limiter:    rate.NewLimiter(limit, burst),
		clerk:      clerkCfg,
		store:      store,
		userAgent:  cfg.UserAgent,
		log:        log.With(logger, "component", "fetcher"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rec record.Record, key record.StorageKey) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return &TransientError{Err: errors.Wrap(err, "fetcher wait for rate limit")}
	}

	url := f.clerk.DocumentURL(rec)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &TransientError{Err: errors.Wrap(err, "fetcher create request")}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: errors.Wrap(err, "fetcher get document")}
	}
	defer resp.Body.Close()

	if util_http.IsNotFound(resp) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	}

	if err := util_http.EnsureSuccessStatusCode(resp); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &TransientError{
			Status:  resp.StatusCode,
			Blocked: util_http.IsBlocked(resp),
			Err:     err,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Status: resp.StatusCode, Err: errors.Wrap(err, "fetcher read body")}
	}

	if err := f.store.Put(ctx, key, data); err != nil {
		return &PersistenceError{Key: key, Err: err}
	}

	_ = level.Debug(f.log).Log("msg", "document stored", "url", url, "key", key, "bytes", len(data))
	return nil
}
