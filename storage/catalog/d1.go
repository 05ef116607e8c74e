package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go/v6"
	cfd1 "github.com/cloudflare/cloudflare-go/v6/d1"
	"github.com/cloudflare/cloudflare-go/v6/option"

	"github.com/indieinfra/tgfile/config"
	storageutil "github.com/indieinfra/tgfile/storage/util"
)

// D1Store implements Store using Cloudflare D1 via the HTTP API. It mirrors
// the schema of SQLStore to keep parity across backends.
type D1Store struct {
	cfg    *config.D1Catalog
	client *cloudflare.Client
	table  string
}

// NewD1Store builds a store and ensures the schema exists.
func NewD1Store(cfg *config.D1Catalog) (*D1Store, error) {
	return newD1StoreWithClient(cfg, nil)
}

// newD1StoreWithClient creates a D1 store with a custom HTTP client.
// This is used for testing to inject a mock HTTP client.
func newD1StoreWithClient(cfg *config.D1Catalog, client *http.Client) (*D1Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("catalog d1 config is nil")
	}

	prefix := "tgfile"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	store := &D1Store{
		cfg:    cfg,
		client: buildD1Client(cfg, client),
		table:  storageutil.DeriveTableName(prefix, "files"),
	}

	if err := store.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// buildD1Client creates a Cloudflare client configured with API token and
// optional custom endpoint. The httpClient parameter is for tests.
func buildD1Client(cfg *config.D1Catalog, httpClient *http.Client) *cloudflare.Client {
	opts := []option.RequestOption{option.WithAPIToken(strings.TrimSpace(cfg.APIToken))}

	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	return cloudflare.NewClient(opts...)
}

// initSchema ensures the files table exists. This also serves as a health
// check, validating connectivity and authentication at startup.
func (cs *D1Store) initSchema(ctx context.Context) error {
	_, err := cs.executeQuery(ctx, cs.schemaQuery(), nil)
	if err != nil {
		return fmt.Errorf("d1 initialization failed (check account_id, database_id, and api_token): %w", err)
	}
	return nil
}

func (cs *D1Store) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
url TEXT PRIMARY KEY,
webp_url TEXT UNIQUE,
fileId TEXT NOT NULL,
message_id INTEGER NOT NULL,
created_at TEXT NOT NULL,
file_name TEXT,
webp_file_name TEXT,
file_size INTEGER,
webp_file_size INTEGER,
mime_type TEXT
)`, cs.table)
}

func (cs *D1Store) insertQuery(values []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", cs.table, recordColumns, strings.Join(values, ", "))
}

func (cs *D1Store) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE url = ? OR webp_url = ? LIMIT 1", recordColumns, cs.table)
}

func (cs *D1Store) listQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC", recordColumns, cs.table)
}

func (cs *D1Store) pagedListQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC LIMIT ? OFFSET ?", recordColumns, cs.table)
}

func (cs *D1Store) searchQuery() string {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE LOWER(file_name) LIKE ? ESCAPE '!' OR LOWER(webp_file_name) LIKE ? ESCAPE '!' ORDER BY created_at DESC",
		recordColumns, cs.table)
}

func (cs *D1Store) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE url = ? OR webp_url = ?", cs.table)
}

func (cs *D1Store) Insert(ctx context.Context, rec FileRecord) error {
	// The D1 API only takes string parameters, so absent webp columns go
	// into the statement as literal NULLs. A bound "" would collide on the
	// UNIQUE(webp_url) index, which exempts NULLs only.
	values := make([]string, 0, 10)
	var params []any
	for _, field := range []any{
		rec.PublicURL,
		nullableString(rec.WebpURL),
		rec.FileID,
		rec.MessageID,
		rec.CreatedAt.Format(createdAtLayout),
		rec.FileName,
		nullableString(rec.WebpFileName),
		rec.FileSize,
		rec.WebpFileSize,
		rec.MimeType,
	} {
		if field == nil {
			values = append(values, "NULL")
			continue
		}
		values = append(values, "?")
		params = append(params, field)
	}

	_, err := cs.executeQuery(ctx, cs.insertQuery(values), params)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("insert %s: %w", rec.PublicURL, ErrDuplicate)
		}
		return err
	}

	return nil
}

func (cs *D1Store) GetByURL(ctx context.Context, url string) (*FileRecord, error) {
	rows, err := cs.executeQuery(ctx, cs.selectQuery(), []any{url, url})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	return recordFromRow(rows[0])
}

func (cs *D1Store) List(ctx context.Context, limit, offset int) ([]FileRecord, error) {
	query := cs.listQuery()
	var params []any
	if limit > 0 {
		query = cs.pagedListQuery()
		params = []any{limit, offset}
	}

	rows, err := cs.executeQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}

	return recordsFromRows(rows)
}

func (cs *D1Store) SearchByName(ctx context.Context, query string) ([]FileRecord, error) {
	pattern := "%" + strings.ToLower(escapeLike(query)) + "%"

	rows, err := cs.executeQuery(ctx, cs.searchQuery(), []any{pattern, pattern})
	if err != nil {
		return nil, err
	}

	return recordsFromRows(rows)
}

func (cs *D1Store) Delete(ctx context.Context, url string) error {
	_, err := cs.executeQuery(ctx, cs.deleteQuery(), []any{url, url})
	return err
}

// executeQuery sends a SQL query to the D1 database and returns the result
// rows. Returns nil rows (no error) when the query produces no results.
func (cs *D1Store) executeQuery(ctx context.Context, sql string, params []any) ([]map[string]any, error) {
	body := cfd1.DatabaseQueryParamsBodyD1SingleQuery{Sql: cloudflare.F(sql)}
	if len(params) > 0 {
		body.Params = cloudflare.F(convertParams(params))
	}

	resp, err := cs.client.D1.Database.Query(ctx, cs.cfg.DatabaseID, cfd1.DatabaseQueryParams{
		AccountID: cloudflare.F(strings.TrimSpace(cs.cfg.AccountID)),
		Body:      body,
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Result) == 0 {
		return nil, nil
	}

	result := resp.Result[0]
	if !result.Success {
		return nil, fmt.Errorf("d1 query execution failed")
	}

	rows := make([]map[string]any, 0, len(result.Results))
	for _, r := range result.Results {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", r)
		}
		rows = append(rows, m)
	}

	return rows, nil
}

// convertParams converts query parameters to D1's string-based parameter
// format. Booleans become "1"/"0"; everything else goes through Sprint.
func convertParams(params []any) []string {
	if len(params) == 0 {
		return nil
	}

	out := make([]string, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case bool:
			if v {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
		default:
			out = append(out, fmt.Sprint(p))
		}
	}

	return out
}

func recordFromRow(row map[string]any) (*FileRecord, error) {
	createdAt, err := time.Parse(createdAtLayout, rowString(row, "created_at"))
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &FileRecord{
		PublicURL:    rowString(row, "url"),
		WebpURL:      rowString(row, "webp_url"),
		FileID:       rowString(row, "fileId"),
		MessageID:    rowInt(row, "message_id"),
		CreatedAt:    createdAt,
		FileName:     rowString(row, "file_name"),
		WebpFileName: rowString(row, "webp_file_name"),
		FileSize:     rowInt(row, "file_size"),
		WebpFileSize: rowInt(row, "webp_file_size"),
		MimeType:     rowString(row, "mime_type"),
	}, nil
}

func recordsFromRows(rows []map[string]any) ([]FileRecord, error) {
	var out []FileRecord
	for _, row := range rows {
		rec, err := recordFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}

	return out, nil
}

func rowString(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}

	return ""
}

func rowInt(row map[string]any, key string) int64 {
	switch v := row[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	}

	return 0
}
