package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/indieinfra/tgfile/config"
)

type d1Expectation struct {
	contains string
	params   []string
	rows     []map[string]any
	status   int
	success  bool
	errMsg   string
}

func newD1TestStore(t *testing.T, expectations []d1Expectation) *D1Store {
	t.Helper()

	idx := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}

		if !strings.HasSuffix(r.URL.Path, "/query") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			SQL    string   `json:"sql"`
			Params []string `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}

		if idx >= len(expectations) {
			t.Fatalf("unexpected request for sql: %s", req.SQL)
		}

		exp := expectations[idx]
		idx++

		if !strings.Contains(req.SQL, exp.contains) {
			t.Fatalf("expected sql containing %q, got %q", exp.contains, req.SQL)
		}

		if exp.params != nil {
			if len(req.Params) != len(exp.params) {
				t.Fatalf("expected %d params, got %v", len(exp.params), req.Params)
			}
			for i, want := range exp.params {
				if req.Params[i] != want {
					t.Fatalf("param %d: got %q, want %q", i, req.Params[i], want)
				}
			}
		}

		status := exp.status
		if status == 0 {
			status = http.StatusOK
		}

		w.WriteHeader(status)
		if !exp.success {
			msg := exp.errMsg
			if msg == "" {
				msg = "fail"
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "errors": []map[string]any{{"code": 7500, "message": msg}}})
			return
		}

		result := map[string]any{"success": true}
		if exp.rows != nil {
			result["results"] = exp.rows
		}

		resp := map[string]any{
			"success": true,
			"result":  []map[string]any{result},
		}

		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.D1Catalog{
		AccountID:  "acc",
		DatabaseID: "db",
		APIToken:   "token",
		Endpoint:   srv.URL,
	}

	store, err := newD1StoreWithClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("store init: %v", err)
	}

	return store
}

func d1Row(rec FileRecord) map[string]any {
	return map[string]any{
		"url":            rec.PublicURL,
		"webp_url":       rec.WebpURL,
		"fileId":         rec.FileID,
		"message_id":     float64(rec.MessageID),
		"created_at":     rec.CreatedAt.Format(createdAtLayout),
		"file_name":      rec.FileName,
		"webp_file_name": rec.WebpFileName,
		"file_size":      float64(rec.FileSize),
		"webp_file_size": float64(rec.WebpFileSize),
		"mime_type":      rec.MimeType,
	}
}

func TestD1Store_InsertAndGet(t *testing.T) {
	rec := FileRecord{
		PublicURL: "https://files.example.com/1.jpg",
		WebpURL:   "https://files.example.com/1.webp",
		FileID:    "F1",
		MessageID: 42,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, storageZone),
		FileName:  "photo.jpg",
		FileSize:  2048,
		MimeType:  "image/jpeg",
	}

	store := newD1TestStore(t, []d1Expectation{
		{contains: "CREATE TABLE", success: true},
		{contains: "INSERT INTO", success: true},
		{contains: "SELECT", success: true, rows: []map[string]any{d1Row(rec)}},
	})

	ctx := context.Background()
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetByURL(ctx, rec.PublicURL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FileID != "F1" || got.MessageID != 42 || got.FileName != "photo.jpg" {
		t.Fatalf("unexpected record %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created_at mismatch: got %v want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestD1Store_InsertWithoutWebpVariant(t *testing.T) {
	first := FileRecord{
		PublicURL: "https://files.example.com/1700000000001.txt",
		FileID:    "F1",
		MessageID: 7,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, storageZone),
		FileName:  "notes.txt",
		FileSize:  64,
		MimeType:  "text/plain",
	}
	second := first
	second.PublicURL = "https://files.example.com/1700000000002.txt"
	second.FileName = "more-notes.txt"

	// Absent webp columns must reach the wire as literal NULLs, never as
	// bound empty strings, or the second row trips UNIQUE(webp_url).
	insertSQL := "VALUES (?, NULL, ?, ?, ?, ?, NULL, ?, ?, ?)"
	boundParams := func(rec FileRecord) []string {
		return []string{
			rec.PublicURL, rec.FileID, "7", rec.CreatedAt.Format(createdAtLayout),
			rec.FileName, "64", "0", rec.MimeType,
		}
	}

	store := newD1TestStore(t, []d1Expectation{
		{contains: "CREATE TABLE", success: true},
		{contains: insertSQL, success: true, params: boundParams(first)},
		{contains: insertSQL, success: true, params: boundParams(second)},
	})

	ctx := context.Background()
	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := store.Insert(ctx, second); err != nil {
		t.Fatalf("second insert: %v", err)
	}
}

func TestD1Store_GetNotFound(t *testing.T) {
	store := newD1TestStore(t, []d1Expectation{
		{contains: "CREATE TABLE", success: true},
		{contains: "SELECT", success: true, rows: []map[string]any{}},
	})

	if _, err := store.GetByURL(context.Background(), "https://files.example.com/none.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestD1Store_InsertDuplicate(t *testing.T) {
	// The API client surfaces constraint failures as error text.
	store := newD1TestStore(t, []d1Expectation{
		{contains: "CREATE TABLE", success: true},
		{contains: "INSERT INTO", status: http.StatusBadRequest, errMsg: "UNIQUE constraint failed: tgfile_files.url"},
	})

	err := store.Insert(context.Background(), FileRecord{PublicURL: "https://files.example.com/1.jpg", CreatedAt: Now()})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestD1Store_ListAndSearch(t *testing.T) {
	newer := FileRecord{PublicURL: "https://files.example.com/2.jpg", FileID: "b", CreatedAt: Now(), FileName: "beach.jpg", MimeType: "image/jpeg"}
	older := FileRecord{PublicURL: "https://files.example.com/1.jpg", FileID: "a", CreatedAt: Now().Add(-time.Hour), FileName: "attic.jpg", MimeType: "image/jpeg"}

	store := newD1TestStore(t, []d1Expectation{
		{contains: "CREATE TABLE", success: true},
		{contains: "ORDER BY created_at DESC", success: true, rows: []map[string]any{d1Row(newer), d1Row(older)}},
		{contains: "LIMIT ? OFFSET ?", success: true, rows: []map[string]any{d1Row(older)}},
		{contains: "LOWER(file_name) LIKE", params: []string{"%beach%", "%beach%"}, success: true, rows: []map[string]any{d1Row(newer)}},
	})

	ctx := context.Background()

	all, err := store.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].PublicURL != newer.PublicURL {
		t.Fatalf("unexpected listing %+v", all)
	}

	page, err := store.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if len(page) != 1 || page[0].PublicURL != older.PublicURL {
		t.Fatalf("unexpected page %+v", page)
	}

	found, err := store.SearchByName(ctx, "Beach")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].FileName != "beach.jpg" {
		t.Fatalf("unexpected search result %+v", found)
	}
}

func TestD1Store_Delete(t *testing.T) {
	store := newD1TestStore(t, []d1Expectation{
		{contains: "CREATE TABLE", success: true},
		{contains: "DELETE FROM", success: true},
	})

	if err := store.Delete(context.Background(), "https://files.example.com/1.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
