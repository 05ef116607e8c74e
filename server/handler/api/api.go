// Package api is the key-authenticated machine surface mirroring the HTML
// routes with richer JSON.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/indieinfra/tgfile/server/handler/common"
	"github.com/indieinfra/tgfile/server/handler/remove"
	"github.com/indieinfra/tgfile/server/handler/upload"
	"github.com/indieinfra/tgfile/server/resp"
	"github.com/indieinfra/tgfile/server/state"
	"github.com/indieinfra/tgfile/storage/catalog"
)

type uploadResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	URL    string `json:"url"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Mime   string `json:"mime"`
}

// HandleUpload runs the shared upload pipeline and reports the stored
// record's metadata alongside the served URL.
func HandleUpload(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, perr := upload.Run(st, r)
		if perr != nil {
			common.Logger(r).Errorf("api upload failed: %v", perr)
			resp.WriteUploadError(w, perr.Status, perr.Msg, perr.Err)
			return
		}

		resp.WriteOK(w, uploadResponse{
			Status: 1,
			Msg:    "upload ok",
			URL:    upload.ServedURL(rec),
			Name:   rec.FileName,
			Size:   rec.FileSize,
			Mime:   rec.MimeType,
		})
	})
}

type listResponse struct {
	Files []common.FileInfo `json:"files"`
}

// HandleList answers GET /api/files with optional limit and offset query
// parameters.
func HandleList(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := intParam(r, "limit", 0)
		offset := intParam(r, "offset", 0)

		files, err := st.Catalog.List(r.Context(), limit, offset)
		if err != nil {
			common.LogAndWriteError(w, r, "listing", err)
			return
		}

		resp.WriteOK(w, listResponse{Files: common.FileInfoList(files)})
	})
}

// HandleGet answers GET /api/files/{path...} with the record addressed by
// the public path.
func HandleGet(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, err := st.Catalog.GetByURL(r.Context(), st.PublicURL("/"+r.PathValue("path")))
		if err != nil {
			common.LogAndWriteError(w, r, "lookup", err)
			return
		}

		resp.WriteOK(w, common.FileInfoFrom(*rec))
	})
}

// HandleDelete answers DELETE /api/files/{path...} through the shared
// deletion pipeline.
func HandleDelete(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		url := st.PublicURL("/" + r.PathValue("path"))

		message, err := remove.Run(st, r.Context(), url)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				resp.WriteJSON(w, http.StatusNotFound, resp.DeleteResponse{Message: "file not found"})
				return
			}
			common.Logger(r).Errorf("api delete failed: %v", err)
			resp.WriteJSON(w, http.StatusInternalServerError, resp.DeleteResponse{Message: "delete failed"})
			return
		}

		resp.WriteJSON(w, http.StatusOK, resp.DeleteResponse{Success: true, Message: message})
	})
}

// HandleSearch answers GET /api/search?q= with the same shape as listing.
func HandleSearch(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		files, err := st.Catalog.SearchByName(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			common.LogAndWriteError(w, r, "search", err)
			return
		}

		resp.WriteOK(w, listResponse{Files: common.FileInfoList(files)})
	})
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}

	return v
}
