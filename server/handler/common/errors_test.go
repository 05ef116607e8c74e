package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/indieinfra/tgfile/server/resp"
	"github.com/indieinfra/tgfile/storage/backend"
	"github.com/indieinfra/tgfile/storage/catalog"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{catalog.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("insert: %w", catalog.ErrNotFound), http.StatusNotFound},
		{backend.ErrUpload, http.StatusBadGateway},
		{backend.ErrNoFileID, http.StatusInternalServerError},
		{backend.ErrNoMessageID, http.StatusInternalServerError},
		{backend.ErrTransport, http.StatusGatewayTimeout},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		if got := StatusFor(c.err); got != c.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestLogAndWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/files/x", nil)

	LogAndWriteError(rec, r, "lookup", catalog.ErrNotFound)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var out resp.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Message != "not found" {
		t.Fatalf("unexpected message %q", out.Message)
	}
}
