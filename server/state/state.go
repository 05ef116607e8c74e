package state

import (
	"context"
	"net/http"
	"time"

	"github.com/indieinfra/tgfile/cache"
	"github.com/indieinfra/tgfile/config"
	"github.com/indieinfra/tgfile/storage/backend"
	"github.com/indieinfra/tgfile/storage/catalog"
	"github.com/indieinfra/tgfile/transcode"
)

// Transcoder is the slice of the transcoding adapter the handlers use,
// declared here so tests can substitute a fake.
type Transcoder interface {
	Fetch(ctx context.Context, fileURL string) (*transcode.Result, error)
	ProbeSize(ctx context.Context, fileURL string) int64
}

// EdgeState is the shared collaborator set handed to every handler.
type EdgeState struct {
	Cfg        *config.Config
	Catalog    catalog.Store
	Backend    backend.Store
	Transcoder Transcoder
	Cache      cache.ResponseCache
	BingCache  cache.ResponseCache

	// HTTPClient performs the direct downloads of resolved backend URLs
	// and the bing upstream call.
	HTTPClient *http.Client
}

// Client returns the configured HTTP client, defaulting sensibly when the
// state was assembled by hand in tests.
func (s *EdgeState) Client() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// PublicURL converts a request path into the public URL the catalog keys
// records by.
func (s *EdgeState) PublicURL(path string) string {
	return "https://" + s.Cfg.Server.PublicDomain + path
}
