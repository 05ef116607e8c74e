package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/indieinfra/tgfile/cache"
	"github.com/indieinfra/tgfile/config"
	"github.com/indieinfra/tgfile/server/handler/api"
	"github.com/indieinfra/tgfile/server/handler/fetch"
	"github.com/indieinfra/tgfile/server/handler/page"
	"github.com/indieinfra/tgfile/server/handler/remove"
	"github.com/indieinfra/tgfile/server/handler/upload"
	"github.com/indieinfra/tgfile/server/middleware"
	"github.com/indieinfra/tgfile/server/state"
	"github.com/indieinfra/tgfile/storage/backend"
	backendfactory "github.com/indieinfra/tgfile/storage/backend/factory"
	"github.com/indieinfra/tgfile/storage/catalog"
	catalogfactory "github.com/indieinfra/tgfile/storage/catalog/factory"
	"github.com/indieinfra/tgfile/transcode"
)

func initializeCatalog(cfg *config.Catalog) (catalog.Store, error) {
	store, err := catalogfactory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize catalog: %w", err)
	}
	return store, nil
}

func initializeBackend(cfg *config.Backend) (backend.Store, error) {
	store, err := backendfactory.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize backend: %w", err)
	}
	return store, nil
}

// NewMux builds the full route table over the given state. Split from
// StartServer so tests can drive it with httptest.
func NewMux(st *state.EdgeState) http.Handler {
	cfg := st.Cfg
	mux := http.NewServeMux()

	mux.Handle("GET /config", page.HandleConfig(st))
	mux.Handle("GET /bing", page.HandleBing(st))

	mux.Handle("GET /{$}", page.HandleRoot(st))
	mux.Handle("POST /{$}", page.HandleRoot(st))
	mux.Handle("GET /login", page.HandleLoginPage(st))
	mux.Handle("POST /login", page.HandleLogin(st))

	mux.Handle("GET /upload", middleware.RequireSession(cfg, upload.HandlePage(st)))
	mux.Handle("POST /upload", middleware.RequireSession(cfg, upload.Handle(st)))
	mux.Handle("GET /admin", middleware.RequireSession(cfg, page.HandleAdmin(st)))
	mux.Handle("POST /delete", middleware.RequireSession(cfg, remove.Handle(st)))
	mux.Handle("POST /search", middleware.RequireSession(cfg, page.HandleSearch(st)))

	mux.Handle("POST /api/upload", middleware.RequireAPIKey(cfg, api.HandleUpload(st)))
	mux.Handle("GET /api/files", middleware.RequireAPIKey(cfg, api.HandleList(st)))
	mux.Handle("GET /api/files/{path...}", middleware.RequireAPIKey(cfg, api.HandleGet(st)))
	mux.Handle("DELETE /api/files/{path...}", middleware.RequireAPIKey(cfg, api.HandleDelete(st)))
	mux.Handle("GET /api/search", middleware.RequireAPIKey(cfg, api.HandleSearch(st)))

	// Everything else is a public file URL.
	mux.Handle("GET /", fetch.Handle(st))

	return middleware.WithLogging(mux)
}

// NewState assembles the collaborator set from configuration.
func NewState(cfg *config.Config) (*state.EdgeState, error) {
	cat, err := initializeCatalog(&cfg.Catalog)
	if err != nil {
		return nil, err
	}

	back, err := initializeBackend(&cfg.Backend)
	if err != nil {
		return nil, err
	}

	return &state.EdgeState{
		Cfg:        cfg,
		Catalog:    cat,
		Backend:    back,
		Transcoder: transcode.New(cfg.Server.PublicDomain, cfg.Webp.Options),
		Cache: cache.NewLRU(cfg.Cache.Entries, cfg.Cache.MaxEntryBytes,
			time.Duration(cfg.Cache.TTLHours)*time.Hour),
		BingCache:  cache.NewLRU(4, 0, time.Hour),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func StartServer(cfg *config.Config) {
	st, err := NewState(cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	bindAddress := fmt.Sprintf("%v:%v", cfg.Server.Address, cfg.Server.Port)
	log.Printf("serving http requests on %q", bindAddress)
	log.Fatal(http.ListenAndServe(bindAddress, NewMux(st)))
}
