package cowkit

import (
	"mime"
	"net/http"
	"path"
	"strings"
)

// DefaultContentType is reported when neither the name nor the content
// identify a file.
const DefaultContentType = "application/octet-stream"

// Extensions whose types differ between platforms' mime tables, or are
// missing from them.
var extensionToMIME = map[string]string{
	".txt":   "text/plain",
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".js":    "text/javascript",
	".json":  "application/json",
	".xml":   "application/xml",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".pdf":   "application/pdf",
	".zip":   "application/zip",
	".gz":    "application/gzip",
	".tar":   "application/x-tar",
	".csv":   "text/csv",
	".md":    "text/markdown",
	".yaml":  "application/yaml",
	".yml":   "application/yaml",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// GuessContentType determines the content type of a file from its name,
// falling back to sniffing data (which may be nil) and then to
// DefaultContentType.
func GuessContentType(name string, data []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if contentType, ok := extensionToMIME[ext]; ok {
		return contentType
	}
	if ext != "" {
		if contentType := mime.TypeByExtension(ext); contentType != "" {
			return contentType
		}
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return DefaultContentType
}
