package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/indieinfra/tgfile/config"
	"github.com/indieinfra/tgfile/storage/backend"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(&config.TelegramBackend{
		BotToken: "12345:token",
		ChatID:   "-100200300",
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	return client
}

func TestSelectModality(t *testing.T) {
	cases := []struct {
		mime   string
		method string
		field  string
	}{
		{"image/png", "sendPhoto", "photo"},
		{"video/mp4", "sendVideo", "video"},
		{"audio/mpeg", "sendAudio", "audio"},
		{"application/pdf", "sendDocument", "document"},
		{"text/plain", "sendDocument", "document"},
		{"application/octet-stream", "sendDocument", "document"},
	}

	for _, c := range cases {
		mod := selectModality(c.mime)
		if mod.method != c.method || mod.field != c.field {
			t.Fatalf("selectModality(%q) = %+v, want %s/%s", c.mime, mod, c.method, c.field)
		}
	}
}

func TestUploadDocument(t *testing.T) {
	var gotPath, gotField, gotChatID string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotChatID = r.FormValue("chat_id")
		for field := range r.MultipartForm.File {
			gotField = field
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":77,"document":{"file_id":"DOC123"}}}`)
	})

	res, err := client.Upload(context.Background(), strings.NewReader("hello file"), "a.txt", "text/plain", 10)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if gotPath != "/bot12345:token/sendDocument" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotField != "document" || gotChatID != "-100200300" {
		t.Fatalf("unexpected form: field=%q chat_id=%q", gotField, gotChatID)
	}
	if res.FileID != "DOC123" || res.MessageID != 77 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUploadPhotoPicksLargestRendition(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot12345:token/sendPhoto" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":5,"photo":[
			{"file_id":"small","width":90,"height":60},
			{"file_id":"large","width":1280,"height":960},
			{"file_id":"mid","width":320,"height":240}
		]}}`)
	})

	res, err := client.Upload(context.Background(), strings.NewReader("img"), "p.jpg", "image/jpeg", 3)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.FileID != "large" {
		t.Fatalf("expected largest photo rendition, got %q", res.FileID)
	}
}

func TestUploadRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"description":"chat not found"}`)
	})

	_, err := client.Upload(context.Background(), strings.NewReader("x"), "a.bin", "application/octet-stream", 1)
	if !errors.Is(err, backend.ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected upstream description in error, got %v", err)
	}
}

func TestUploadMissingIdentifiers(t *testing.T) {
	t.Run("no file id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":9}}`)
		})

		_, err := client.Upload(context.Background(), strings.NewReader("x"), "a.txt", "text/plain", 1)
		if !errors.Is(err, backend.ErrNoFileID) {
			t.Fatalf("expected ErrNoFileID, got %v", err)
		}
	})

	t.Run("no message id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ok":true,"result":{"document":{"file_id":"DOC"}}}`)
		})

		_, err := client.Upload(context.Background(), strings.NewReader("x"), "a.txt", "text/plain", 1)
		if !errors.Is(err, backend.ErrNoMessageID) {
			t.Fatalf("expected ErrNoMessageID, got %v", err)
		}
	})
}

func TestUploadTransportError(t *testing.T) {
	client, err := New(&config.TelegramBackend{
		BotToken: "t",
		ChatID:   "c",
		Endpoint: "http://127.0.0.1:1", // nothing listens here
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Upload(context.Background(), strings.NewReader("x"), "a.txt", "text/plain", 1)
	if !errors.Is(err, backend.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot12345:token/getFile" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("file_id"); got != "DOC123" {
			t.Fatalf("unexpected file_id %q", got)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"file_path":"documents/file_7.txt"}}`)
	})

	got, err := client.Resolve(context.Background(), "DOC123")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasSuffix(got, "/file/bot12345:token/documents/file_7.txt") {
		t.Fatalf("unexpected url: %q", got)
	}
}

func TestResolveIrretrievable(t *testing.T) {
	t.Run("missing file_path", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ok":true,"result":{}}`)
		})

		if _, err := client.Resolve(context.Background(), "X"); !errors.Is(err, backend.ErrNotResolvable) {
			t.Fatalf("expected ErrNotResolvable, got %v", err)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		if _, err := client.Resolve(context.Background(), "X"); !errors.Is(err, backend.ErrNotResolvable) {
			t.Fatalf("expected ErrNotResolvable, got %v", err)
		}
	})
}

func TestRemove(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/bot12345:token/deleteMessage" {
				t.Fatalf("unexpected path %q", r.URL.Path)
			}
			if got := r.URL.Query().Get("message_id"); got != "42" {
				t.Fatalf("unexpected message_id %q", got)
			}
			fmt.Fprint(w, `{"ok":true,"result":true}`)
		})

		if err := client.Remove(context.Background(), "F", 42); err != nil {
			t.Fatalf("remove: %v", err)
		}
	})

	t.Run("already gone", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"description":"Bad Request: message to delete not found"}`)
		})

		if err := client.Remove(context.Background(), "F", 42); !errors.Is(err, backend.ErrAlreadyGone) {
			t.Fatalf("expected ErrAlreadyGone, got %v", err)
		}
	})

	t.Run("other failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"ok":false,"description":"not enough rights"}`)
		})

		err := client.Remove(context.Background(), "F", 42)
		if err == nil || errors.Is(err, backend.ErrAlreadyGone) {
			t.Fatalf("expected generic failure, got %v", err)
		}
	})
}
