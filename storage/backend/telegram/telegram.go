// Package telegram stores files as attachments on Telegram Bot API
// messages in a configured chat.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/indieinfra/tgfile/config"
	"github.com/indieinfra/tgfile/mediatype"
	"github.com/indieinfra/tgfile/storage/backend"
)

const defaultEndpoint = "https://api.telegram.org"

// Client implements backend.Store over the Telegram Bot API.
type Client struct {
	cfg        *config.TelegramBackend
	httpClient *http.Client
	endpoint   string
}

func New(cfg *config.TelegramBackend) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram backend config is nil")
	}

	endpoint := defaultEndpoint
	if cfg.Endpoint != "" {
		endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   endpoint,
	}, nil
}

// modality is the upload endpoint and multipart field for a MIME class.
// Telegram exposes type-specialized endpoints with different server-side
// processing; documents bypass re-encoding and preserve bytes exactly.
type modality struct {
	method string
	field  string
}

func selectModality(mime string) modality {
	switch mediatype.MainType(mime) {
	case "image":
		return modality{method: "sendPhoto", field: "photo"}
	case "video":
		return modality{method: "sendVideo", field: "video"}
	case "audio":
		return modality{method: "sendAudio", field: "audio"}
	}

	return modality{method: "sendDocument", field: "document"}
}

// message models the variant response shapes returned by the four send
// endpoints. Exactly one attachment field is populated per modality.
type message struct {
	MessageID int64       `json:"message_id"`
	Document  *attachment `json:"document"`
	Video     *attachment `json:"video"`
	Audio     *attachment `json:"audio"`
	Photo     []photoSize `json:"photo"`
}

type attachment struct {
	FileID string `json:"file_id"`
}

type photoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// fileID extracts the canonical file handle from whichever attachment
// field the modality populated. Photos arrive as a resolution ladder; the
// largest rendition is the stored original.
func (m *message) fileID() string {
	for _, a := range []*attachment{m.Document, m.Video, m.Audio} {
		if a != nil && a.FileID != "" {
			return a.FileID
		}
	}

	best := ""
	bestArea := -1
	for _, p := range m.Photo {
		if area := p.Width * p.Height; area > bestArea {
			best = p.FileID
			bestArea = area
		}
	}

	return best
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) Upload(ctx context.Context, r io.Reader, name, mime string, size int64) (*backend.UploadResult, error) {
	mod := selectModality(mime)

	body := &strings.Builder{}
	// The copy below buffers the payload; Telegram needs a sized
	// multipart body and uploads are already capped by the size gate.
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("chat_id", c.cfg.ChatID); err != nil {
		return nil, err
	}
	part, err := writer.CreateFormFile(mod.field, name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(mod.method), strings.NewReader(body.String()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrTransport, err)
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("decode %s response: %w", mod.method, err)
	}

	if resp.StatusCode >= 300 || !decoded.OK {
		return nil, fmt.Errorf("%w: %s returned %d: %s", backend.ErrUpload, mod.method, resp.StatusCode, decoded.Description)
	}

	var msg message
	if err := json.Unmarshal(decoded.Result, &msg); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", mod.method, err)
	}

	fileID := msg.fileID()
	if fileID == "" {
		return nil, backend.ErrNoFileID
	}
	if msg.MessageID == 0 {
		return nil, backend.ErrNoMessageID
	}

	return &backend.UploadResult{FileID: fileID, MessageID: msg.MessageID}, nil
}

func (c *Client) Resolve(ctx context.Context, fileID string) (string, error) {
	reqURL := c.methodURL("getFile") + "?file_id=" + url.QueryEscape(fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", backend.ErrNotResolvable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: getFile returned %d", backend.ErrNotResolvable, resp.StatusCode)
	}

	var decoded struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", backend.ErrNotResolvable, err)
	}

	if !decoded.OK || decoded.Result.FilePath == "" {
		return "", fmt.Errorf("%w: no file_path for handle", backend.ErrNotResolvable)
	}

	return fmt.Sprintf("%s/file/bot%s/%s", c.endpoint, c.cfg.BotToken, decoded.Result.FilePath), nil
}

func (c *Client) Remove(ctx context.Context, fileID string, messageID int64) error {
	reqURL := fmt.Sprintf("%s?chat_id=%s&message_id=%d", c.methodURL("deleteMessage"), url.QueryEscape(c.cfg.ChatID), messageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", backend.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		return nil
	}

	var decoded apiResponse
	_ = json.NewDecoder(resp.Body).Decode(&decoded)

	if strings.Contains(decoded.Description, "message to delete not found") {
		return fmt.Errorf("%w: %s", backend.ErrAlreadyGone, decoded.Description)
	}

	return fmt.Errorf("deleteMessage returned %d: %s", resp.StatusCode, decoded.Description)
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.endpoint, c.cfg.BotToken, method)
}

// WithHTTPClient swaps the underlying HTTP client; used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}
