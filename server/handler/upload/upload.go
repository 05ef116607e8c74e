// Package upload implements the ingestion pipeline: multipart file in,
// catalog record out. The browser route and the API route share Run and
// differ only in response shape.
package upload

import (
	"fmt"
	"net/http"
	"time"

	"github.com/indieinfra/tgfile/mediatype"
	"github.com/indieinfra/tgfile/server/handler/common"
	"github.com/indieinfra/tgfile/server/resp"
	"github.com/indieinfra/tgfile/server/state"
	"github.com/indieinfra/tgfile/server/tmpl"
	"github.com/indieinfra/tgfile/storage/catalog"
)

// FileField is the multipart field the uploaded file arrives in.
const FileField = "file"

// PipelineError carries the HTTP status and user-facing message for a
// failed upload step, wrapping the underlying cause.
type PipelineError struct {
	Status int
	Msg    string
	Err    error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Run executes the upload pipeline and returns the stored record. The size
// gate runs before any backend call; an oversized file never leaves the
// process.
func Run(st *state.EdgeState, r *http.Request) (*catalog.FileRecord, *PipelineError) {
	ctx := r.Context()

	f, header, err := r.FormFile(FileField)
	if err != nil {
		return nil, &PipelineError{Status: http.StatusBadRequest, Msg: "a file field is required", Err: err}
	}
	defer f.Close()

	maxBytes := int64(st.Cfg.Upload.MaxSizeMB) << 20
	if header.Size > maxBytes {
		return nil, &PipelineError{
			Status: http.StatusBadRequest,
			Msg:    fmt.Sprintf("file exceeds the %d MB limit", st.Cfg.Upload.MaxSizeMB),
		}
	}

	ext := mediatype.Ext(header.Filename)
	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = mediatype.Resolve(ext)
	}

	res, err := st.Backend.Upload(ctx, f, header.Filename, mime, header.Size)
	if err != nil {
		return nil, &PipelineError{Status: common.StatusFor(err), Msg: "upload to storage backend failed", Err: err}
	}

	stamp := time.Now().UnixMilli()
	path := fmt.Sprintf("/%d", stamp)
	if ext != "" {
		path = fmt.Sprintf("/%d.%s", stamp, ext)
	}

	rec := catalog.FileRecord{
		PublicURL: st.PublicURL(path),
		FileID:    res.FileID,
		MessageID: res.MessageID,
		CreatedAt: catalog.Now(),
		FileName:  header.Filename,
		FileSize:  header.Size,
		MimeType:  mime,
	}

	if st.Cfg.Webp.Enable && mediatype.ConvertibleImage(mime) {
		rec.WebpURL = st.PublicURL(fmt.Sprintf("/%d.webp", stamp))
		rec.WebpFileName = mediatype.WebpName(header.Filename)

		// Size probe is bookkeeping only; any failure leaves it zero.
		if direct, err := st.Backend.Resolve(ctx, res.FileID); err == nil {
			rec.WebpFileSize = st.Transcoder.ProbeSize(ctx, direct)
		}
	}

	if err := st.Catalog.Insert(ctx, rec); err != nil {
		return nil, &PipelineError{Status: http.StatusInternalServerError, Msg: "failed to record upload", Err: err}
	}

	return &rec, nil
}

// ServedURL is the URL handed back to the uploader: the webp variant when
// one was allocated, the plain URL otherwise.
func ServedURL(rec *catalog.FileRecord) string {
	if rec.WebpURL != "" {
		return rec.WebpURL
	}
	return rec.PublicURL
}

// HandlePage renders the uploader page.
func HandlePage(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tmpl.Render(w, r, "upload.html", map[string]any{
			"MaxSizeMB": st.Cfg.Upload.MaxSizeMB,
		})
	})
}

// Handle runs the pipeline for the browser uploader.
func Handle(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, perr := Run(st, r)
		if perr != nil {
			common.Logger(r).Errorf("upload failed: %v", perr)
			resp.WriteUploadError(w, perr.Status, perr.Msg, perr.Err)
			return
		}

		common.Logger(r).Infof("stored %q as %s", rec.FileName, rec.PublicURL)
		resp.WriteUploadOK(w, ServedURL(rec))
	})
}
