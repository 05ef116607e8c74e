package common

import (
	"github.com/indieinfra/tgfile/storage/catalog"
)

// FileInfo is the JSON shape of a catalog record on the search and API
// surfaces.
type FileInfo struct {
	URL          string `json:"url"`
	WebpURL      string `json:"webp_url,omitempty"`
	FileName     string `json:"file_name"`
	WebpFileName string `json:"webp_file_name,omitempty"`
	FileSize     int64  `json:"file_size"`
	WebpFileSize int64  `json:"webp_file_size,omitempty"`
	MimeType     string `json:"mime_type"`
	CreatedAt    string `json:"created_at"`
}

// FileInfoFrom converts a catalog record for the wire.
func FileInfoFrom(rec catalog.FileRecord) FileInfo {
	return FileInfo{
		URL:          rec.PublicURL,
		WebpURL:      rec.WebpURL,
		FileName:     rec.FileName,
		WebpFileName: rec.WebpFileName,
		FileSize:     rec.FileSize,
		WebpFileSize: rec.WebpFileSize,
		MimeType:     rec.MimeType,
		CreatedAt:    rec.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// FileInfoList converts a slice of records, never returning nil so the
// JSON encodes as an empty array.
func FileInfoList(recs []catalog.FileRecord) []FileInfo {
	out := make([]FileInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FileInfoFrom(rec))
	}
	return out
}
