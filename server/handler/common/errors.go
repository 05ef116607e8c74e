package common

import (
	"errors"
	"log"
	"net/http"

	"github.com/indieinfra/tgfile/server/resp"
	"github.com/indieinfra/tgfile/server/util"
	"github.com/indieinfra/tgfile/storage/backend"
	"github.com/indieinfra/tgfile/storage/catalog"
)

// StatusFor maps pipeline errors to HTTP statuses: catalog misses are the
// client's problem, backend rejections are a bad gateway, malformed
// backend responses are ours, and network failures are a gateway timeout.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, backend.ErrUpload):
		return http.StatusBadGateway
	case errors.Is(err, backend.ErrNoFileID), errors.Is(err, backend.ErrNoMessageID):
		return http.StatusInternalServerError
	case errors.Is(err, backend.ErrTransport):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Logger returns the request-scoped logger, falling back to a fresh one
// when the middleware did not run (direct handler tests).
func Logger(r *http.Request) *util.RequestLogger {
	if rl := util.FromContext(r.Context()); rl != nil {
		return rl
	}
	return util.WithRequest(log.Default(), r, "")
}

// LogAndWriteError logs an error with request context and writes the JSON
// error shape used by the API surface.
func LogAndWriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	Logger(r).Errorf("%s failed: %v", op, err)

	status := StatusFor(err)
	if status == http.StatusNotFound {
		resp.WriteHttpError(w, status, "not found")
		return
	}

	resp.WriteHttpError(w, status, op+" failed")
}
