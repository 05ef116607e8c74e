// Package fetch implements the anonymous delivery pipeline behind the
// catch-all GET route.
package fetch

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/indieinfra/tgfile/cache"
	"github.com/indieinfra/tgfile/mediatype"
	"github.com/indieinfra/tgfile/server/handler/common"
	"github.com/indieinfra/tgfile/server/resp"
	"github.com/indieinfra/tgfile/server/state"
	"github.com/indieinfra/tgfile/storage/catalog"
)

const cacheControl = "public, max-age=31536000"

// Handle serves stored file bodies. Order matters: cache, catalog,
// variant redirect, backend resolve, transcode (with fallback), download.
func Handle(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl := common.Logger(r)
		requested := st.PublicURL(r.URL.Path)

		if e, ok := st.Cache.Get(requested); ok {
			writeEntry(w, e)
			return
		}

		rec, err := st.Catalog.GetByURL(r.Context(), requested)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				resp.WritePlainError(w, http.StatusNotFound, "file not found")
				return
			}
			rl.Errorf("catalog lookup failed: %v", err)
			resp.WritePlainError(w, http.StatusInternalServerError, "lookup failed")
			return
		}

		isWebp := rec.WebpURL != "" && requested == rec.WebpURL

		// A plain request on a record carrying a webp variant is pointed
		// at the variant instead of served directly.
		if !isWebp && rec.WebpURL != "" && st.Cfg.Webp.Enable {
			http.Redirect(w, r, rec.WebpURL, redirectStatus(st))
			return
		}

		direct, err := st.Backend.Resolve(r.Context(), rec.FileID)
		if err != nil {
			rl.Errorf("backend handle %q is irretrievable: %v", rec.FileID, err)
			resp.WritePlainError(w, http.StatusNotFound, "file not found")
			return
		}

		body, contentType, err := fetchBody(st, r, rec, direct, isWebp)
		if err != nil {
			rl.Errorf("download failed: %v", err)
			resp.WritePlainError(w, http.StatusInternalServerError, "download failed")
			return
		}

		entry := cache.Entry{
			Body:         body,
			ContentType:  contentType,
			Disposition:  disposition(rec, isWebp),
			CacheControl: cacheControl,
		}

		writeEntry(w, entry)
		st.Cache.Put(requested, entry)
	})
}

// fetchBody retrieves the bytes to serve: the transcoded rendition when
// this is a webp request on convertible content, the original otherwise.
// A failed transcode falls back to the original bytes.
func fetchBody(st *state.EdgeState, r *http.Request, rec *catalog.FileRecord, direct string, isWebp bool) ([]byte, string, error) {
	if isWebp && st.Cfg.Webp.Enable && mediatype.ConvertibleImage(rec.MimeType) {
		if res, err := st.Transcoder.Fetch(r.Context(), direct); err == nil {
			defer res.Body.Close()

			body, err := io.ReadAll(res.Body)
			if err == nil {
				return body, res.ContentType, nil
			}
			common.Logger(r).Errorf("reading transcoded body failed: %v", err)
		} else {
			common.Logger(r).Infof("transcode unavailable, serving original: %v", err)
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, direct, nil)
	if err != nil {
		return nil, "", err
	}

	res, err := st.Client().Do(req)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, "", fmt.Errorf("upstream returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := rec.MimeType
	if contentType == "" {
		contentType = mediatype.Resolve(mediatype.Ext(rec.FileName))
	}

	return body, contentType, nil
}

func redirectStatus(st *state.EdgeState) int {
	if st.Cfg.Webp.Redirect == "permanent" {
		return http.StatusMovedPermanently
	}
	return http.StatusFound
}

func disposition(rec *catalog.FileRecord, isWebp bool) string {
	name := rec.FileName
	if isWebp && rec.WebpFileName != "" {
		name = rec.WebpFileName
	}

	return fmt.Sprintf("inline; filename*=UTF-8''%s", url.PathEscape(name))
}

func writeEntry(w http.ResponseWriter, e cache.Entry) {
	w.Header().Set("Content-Type", e.ContentType)
	w.Header().Set("Cache-Control", e.CacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Disposition", e.Disposition)
	w.WriteHeader(http.StatusOK)
	w.Write(e.Body)
}
