// Package mediatype maps file extensions to MIME types and decides which
// types are eligible for on-the-fly webp conversion.
package mediatype

import "strings"

const Fallback = "application/octet-stream"

var byExtension = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"bmp":  "image/bmp",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"mkv":  "video/x-matroska",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
	"7z":   "application/x-7z-compressed",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"md":   "text/markdown",
	"html": "text/html",
	"css":  "text/css",
	"json": "application/json",
	"xml":  "application/xml",
	"js":   "application/javascript",
	"yml":  "application/yaml",
	"yaml": "application/yaml",
	"py":   "text/x-python",
	"sh":   "application/x-sh",
}

// Resolve maps a file extension (without the leading dot, any case) to a
// MIME type. Unknown extensions resolve to the generic binary type.
func Resolve(ext string) string {
	if mime, ok := byExtension[strings.ToLower(ext)]; ok {
		return mime
	}

	return Fallback
}

// Ext returns the lowercased extension of a file name, without the dot.
// Names with no dot yield an empty string.
func Ext(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}

	return strings.ToLower(name[idx+1:])
}

// ConvertibleImage reports whether a MIME type is in the webp conversion
// allow-list. Upload and delivery both consult this function, so the two
// eligibility checks cannot drift apart.
func ConvertibleImage(mime string) bool {
	switch mime {
	case "image/jpeg", "image/png", "image/gif":
		return true
	}

	return false
}

// WebpName replaces the final extension of a file name with .webp.
func WebpName(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name + ".webp"
	}

	return name[:idx] + ".webp"
}

// MainType returns the top-level MIME class (image, video, audio, ...).
func MainType(mime string) string {
	main, _, found := strings.Cut(mime, "/")
	if !found {
		return mime
	}

	return main
}
