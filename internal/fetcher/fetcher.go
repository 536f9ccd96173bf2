// Package fetcher downloads remote pages and JSON documents and reads
// spreadsheet grids from CSV and XLSX files.
package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote resources.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// GetJSON fetches the URL and decodes the JSON body into v.
	GetJSON(ctx context.Context, url string, v any) error
}

type downloadFunc func(ctx context.Context, url string) (io.ReadCloser, error)

// getJSON is the GetJSON shared by every Fetcher: download, then decode one
// JSON value.
func getJSON(ctx context.Context, download downloadFunc, url string, v any) error {
	body, err := download(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close() //nolint:errcheck

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return eris.Wrapf(err, "fetcher: decode %s", Redact(url))
	}
	return nil
}

// secretParams are query parameters whose values never leave the process
// in logs, errors or cache keys.
var secretParams = []string{"apikey", "api_key", "key", "token", "access_token"}

// Redact masks credentials in rawURL: the userinfo password and the value
// of any secret query parameter. Unparsable input is returned unchanged.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	masked := false
	for name := range q {
		for _, secret := range secretParams {
			if strings.EqualFold(name, secret) {
				q.Set(name, "REDACTED")
				masked = true
			}
		}
	}
	if masked {
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}
