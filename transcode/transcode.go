// Package transcode fetches webp renditions of stored images through the
// Cloudflare image resizing endpoint exposed under the public domain.
package transcode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Result is a fetched webp rendition. The caller owns Body.
type Result struct {
	Body        io.ReadCloser
	ContentType string
}

type Transcoder struct {
	domain  string
	options string
	client  *http.Client
}

// New builds a transcoder serving renditions from the given public domain.
// options is the comma-separated cf-image option string, for example
// "format=webp,quality=80,fit=contain".
func New(domain, options string) *Transcoder {
	return &Transcoder{
		domain:  domain,
		options: options,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// VariantURL is the resizing endpoint URL that transcodes fileURL.
func (t *Transcoder) VariantURL(fileURL string) string {
	return fmt.Sprintf("https://%s/cdn-cgi/image/%s/%s", t.domain, t.options, url.QueryEscape(fileURL))
}

// Fetch retrieves the webp rendition of fileURL. Any upstream failure is
// returned as an error so the caller can fall back to the original bytes.
func (t *Transcoder) Fetch(ctx context.Context, fileURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.VariantURL(fileURL), nil)
	if err != nil {
		return nil, fmt.Errorf("build transcode request: %w", err)
	}

	res, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcode fetch failed: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		res.Body.Close()
		return nil, fmt.Errorf("transcode fetch returned status %d", res.StatusCode)
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/webp"
	}

	return &Result{Body: res.Body, ContentType: contentType}, nil
}

// ProbeSize asks the resizing endpoint for the rendition's byte size via a
// HEAD request. The size is bookkeeping only, so every failure mode maps
// to zero rather than an error.
func (t *Transcoder) ProbeSize(ctx context.Context, fileURL string) int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.VariantURL(fileURL), nil)
	if err != nil {
		return 0
	}

	res, err := t.client.Do(req)
	if err != nil {
		return 0
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 || res.ContentLength < 0 {
		return 0
	}

	return res.ContentLength
}

// WithHTTPClient swaps the underlying HTTP client; used by tests.
func (t *Transcoder) WithHTTPClient(hc *http.Client) *Transcoder {
	t.client = hc
	return t
}
