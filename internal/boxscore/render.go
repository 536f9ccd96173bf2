package boxscore

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/yrfi-cli/internal/fetcher"
)

// Renderer returns the HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPRenderer fetches the server-rendered page.
type HTTPRenderer struct {
	Fetcher fetcher.Fetcher
}

// Render downloads url.
func (h HTTPRenderer) Render(ctx context.Context, url string) (io.ReadCloser, error) {
	return h.Fetcher.Download(ctx, url)
}

// ChromeRenderer loads the page in headless Chrome and returns the DOM after
// the linescore (or the team header) has rendered.
type ChromeRenderer struct {
	UserAgent string
	Timeout   time.Duration
	// Pacer spaces page loads like the HTTP path does.
	Pacer *fetcher.Pacer
}

// Render navigates to url and returns the outer HTML of the document.
func (c ChromeRenderer) Render(ctx context.Context, url string) (io.ReadCloser, error) {
	if c.Pacer != nil {
		if err := c.Pacer.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "boxscore: chrome wait")
		}
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if c.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("h2.ScoreCell__TeamName", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "boxscore: chrome render %s", url)
	}
	return io.NopCloser(strings.NewReader(html)), nil
}
