package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/indieinfra/tgfile/config"
	"github.com/indieinfra/tgfile/server/resp"
	"github.com/indieinfra/tgfile/server/session"
	"github.com/indieinfra/tgfile/server/util"
)

// WithLogging installs a request-scoped logger into the context. Applied
// around the whole mux so every handler can log with the request id.
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl := util.WithRequest(log.Default(), r, "")
		next.ServeHTTP(w, r.WithContext(util.ContextWithLogger(r.Context(), rl)))
	})
}

// RequireSession gates HTML routes behind the login session. When auth is
// disabled in config the gate is a pass-through. Failures redirect to the
// root page rather than erroring, since the caller is a browser.
func RequireSession(cfg *config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Auth.Enable {
			next.ServeHTTP(w, r)
			return
		}

		if !session.FromRequest(r, cfg.Auth.Username) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		if rl := util.FromContext(r.Context()); rl != nil {
			r = r.WithContext(util.ContextWithLogger(r.Context(), rl.WithUser(cfg.Auth.Username)))
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAPIKey gates the /api routes. An empty configured key disables
// the API surface entirely. The presented key comes from the X-API-Key
// header or, for convenience, an api_key query parameter.
func RequireAPIKey(cfg *config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.API.Key == "" {
			resp.WriteHttpError(w, http.StatusNotFound, "api surface is disabled")
			return
		}

		presented := r.Header.Get("X-API-Key")
		if presented == "" {
			presented = r.URL.Query().Get("api_key")
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.API.Key)) != 1 {
			resp.WriteHttpError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
