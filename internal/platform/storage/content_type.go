package storage

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectContentType sniffs data first and falls back to the key's extension.
func DetectContentType(key string, data []byte) string {
	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt != nil && mt.String() != "application/octet-stream" {
			ct := mt.String()
			// mimetype reports "text/plain; charset=utf-8" for JSON-less text; keep the extension's opinion.
			if !strings.HasPrefix(ct, "text/plain") {
				return ct
			}
		}
	}
	if ct := contentTypeForKey(key); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// IsImage reports whether ct names an image type.
func IsImage(ct string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "image/")
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch path.Ext(s) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".json":
		return "application/json"
	default:
		return ""
	}
}
