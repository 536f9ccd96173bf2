package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/yrfi-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// Delay is the minimum spacing between consecutive requests.
	Delay time.Duration
	// MaxRetries is the number of retries after the first attempt for
	// transient failures (429, 5xx, network errors).
	MaxRetries int
	// Backoff overrides the retry delays. Zero fields take defaults.
	Backoff resilience.Policy
	Headers map[string]string
}

// StatusError reports a non-200 response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Pacer spaces requests by a fixed delay. A 429 response doubles the
// spacing (up to 8x) and each success shrinks it back toward the base delay.
type Pacer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	base    time.Duration
	current time.Duration
}

// NewPacer returns a pacer for the given delay. A zero delay never waits.
func NewPacer(delay time.Duration) *Pacer {
	p := &Pacer{base: delay, current: delay}
	if delay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return p
}

// Wait blocks until the next request may be sent.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// OnSuccess shrinks the spacing by 20%, never below the base delay.
func (p *Pacer) OnSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limiter == nil || p.current == p.base {
		return
	}
	p.current = max(p.base, time.Duration(float64(p.current)*0.8))
	p.limiter.SetLimit(rate.Every(p.current))
}

// OnRateLimit doubles the spacing, up to 8x the base delay.
func (p *Pacer) OnRateLimit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limiter == nil {
		return
	}
	p.current = min(p.base*8, p.current*2)
	p.limiter.SetLimit(rate.Every(p.current))
	zap.L().Warn("fetcher: rate limited, widening request spacing",
		zap.Duration("delay", p.current),
	)
}

// Delay returns the current spacing.
func (p *Pacer) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// HTTPFetcher implements Fetcher with pacing and retry.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
	pacer  *Pacer
	retry  resilience.Policy
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}

	retry := opts.Backoff
	if retry.Base == 0 {
		retry = resilience.DefaultPolicy
	}
	retry = retry.WithRetries(opts.MaxRetries)

	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:  opts,
		pacer: NewPacer(opts.Delay),
		retry: retry,
	}
}

// Pacer exposes the request pacer.
func (f *HTTPFetcher) Pacer() *Pacer { return f.pacer }

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	safeURL := Redact(rawURL)
	return resilience.Retry(ctx, f.retry, "GET "+safeURL, func(ctx context.Context) (*http.Response, error) {
		if err := f.pacer.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		for k, v := range f.opts.Headers {
			req.Header.Set(k, v)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			var ue *url.Error
			if errors.As(err, &ue) {
				ue.URL = safeURL
			}
			return nil, resilience.Retryable(eris.Wrap(err, "fetcher: get"), 0)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			f.pacer.OnRateLimit()
		}
		if resilience.RetryableStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, resilience.Retryable(&StatusError{Code: resp.StatusCode, URL: safeURL}, resilience.RetryAfter(resp.Header))
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, URL: safeURL}
		}

		f.pacer.OnSuccess()
		return resp, nil
	})
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: download")
	}
	return resp.Body, nil
}

// GetJSON fetches the URL and decodes the JSON body into v.
func (f *HTTPFetcher) GetJSON(ctx context.Context, rawURL string, v any) error {
	return getJSON(ctx, f.Download, rawURL, v)
}

// ReadAll fetches the URL and returns the full body.
func ReadAll(ctx context.Context, f Fetcher, rawURL string) ([]byte, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}
	return data, nil
}
