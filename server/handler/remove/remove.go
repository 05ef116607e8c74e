// Package remove implements the deletion pipeline. Catalog removal always
// wins: once a record is found it is dropped even when the backend copy
// cannot be deleted.
package remove

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/indieinfra/tgfile/server/handler/common"
	"github.com/indieinfra/tgfile/server/resp"
	"github.com/indieinfra/tgfile/server/state"
	"github.com/indieinfra/tgfile/storage/backend"
	"github.com/indieinfra/tgfile/storage/catalog"
)

// Run deletes the record addressed by url. The returned message is
// user-facing; err is non-nil only when nothing was deleted.
func Run(st *state.EdgeState, ctx context.Context, url string) (string, error) {
	rec, err := st.Catalog.GetByURL(ctx, url)
	if err != nil {
		return "", err
	}

	var remoteErr error
	if err := st.Backend.Remove(ctx, rec.FileID, rec.MessageID); err != nil && !errors.Is(err, backend.ErrAlreadyGone) {
		remoteErr = err
	}

	if err := st.Catalog.Delete(ctx, rec.PublicURL); err != nil {
		return "", fmt.Errorf("catalog delete: %w", err)
	}

	if remoteErr != nil {
		return fmt.Sprintf("deleted from catalog, but remote deletion failed: %v", remoteErr), nil
	}

	return "file deleted", nil
}

type deleteRequest struct {
	URL *string `json:"url"`
}

// Handle answers POST /delete with a JSON {url} body.
func Handle(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == nil {
			resp.WriteJSON(w, http.StatusBadRequest, resp.DeleteResponse{Message: "a url string is required"})
			return
		}

		message, err := Run(st, r.Context(), *req.URL)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				resp.WriteJSON(w, http.StatusNotFound, resp.DeleteResponse{Message: "file not found"})
				return
			}
			common.Logger(r).Errorf("delete failed: %v", err)
			resp.WriteJSON(w, http.StatusInternalServerError, resp.DeleteResponse{Message: "delete failed"})
			return
		}

		common.Logger(r).Infof("deleted %s", *req.URL)
		resp.WriteJSON(w, http.StatusOK, resp.DeleteResponse{Success: true, Message: message})
	})
}
