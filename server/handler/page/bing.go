package page

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/indieinfra/tgfile/cache"
	"github.com/indieinfra/tgfile/server/handler/common"
	"github.com/indieinfra/tgfile/server/resp"
	"github.com/indieinfra/tgfile/server/state"
)

// bingUpstream is a var so tests can point it at a local server.
var bingUpstream = "https://cn.bing.com/HPImageArchive.aspx?format=js&idx=0&n=5"

const (
	bingCacheKey     = "bing"
	bingCacheControl = "public, max-age=3600"
)

type bingArchive struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

type bingResponse struct {
	Status  bool     `json:"status"`
	Message string   `json:"message"`
	Data    []string `json:"data"`
}

// HandleBing proxies the Bing daily image list, caching the payload so
// the upstream is contacted at most once per cache TTL.
func HandleBing(st *state.EdgeState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if e, ok := st.BingCache.Get(bingCacheKey); ok {
			writeBing(w, e.Body)
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, bingUpstream, nil)
		if err != nil {
			resp.WriteHttpError(w, http.StatusInternalServerError, "bing request failed")
			return
		}

		res, err := st.Client().Do(req)
		if err != nil {
			common.Logger(r).Errorf("bing upstream failed: %v", err)
			resp.WriteHttpError(w, http.StatusBadGateway, "bing upstream unavailable")
			return
		}
		defer res.Body.Close()

		raw, err := io.ReadAll(res.Body)
		if err != nil {
			common.Logger(r).Errorf("bing body read failed: %v", err)
			resp.WriteHttpError(w, http.StatusBadGateway, "bing upstream unavailable")
			return
		}

		var archive bingArchive
		if err := json.Unmarshal(raw, &archive); err != nil {
			common.Logger(r).Errorf("bing payload parse failed: %v", err)
			resp.WriteHttpError(w, http.StatusBadGateway, "bing upstream unavailable")
			return
		}

		urls := make([]string, 0, len(archive.Images))
		for _, img := range archive.Images {
			urls = append(urls, "https://cn.bing.com"+img.URL)
		}

		body, err := json.Marshal(bingResponse{Status: true, Message: "operation successful", Data: urls})
		if err != nil {
			resp.WriteHttpError(w, http.StatusInternalServerError, "bing response failed")
			return
		}

		st.BingCache.Put(bingCacheKey, cache.Entry{
			Body:         body,
			ContentType:  "application/json",
			CacheControl: bingCacheControl,
		})

		writeBing(w, body)
	})
}

func writeBing(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", bingCacheControl)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
