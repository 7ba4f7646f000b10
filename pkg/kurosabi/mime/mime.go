// Package mime maps file extensions to media types for served file
// bodies. It is a small, dependency-free lookup table rather than a
// wrapper around the standard library's mime package, since the
// standard registry varies by OS mime.types file and that variability
// is exactly what a server wants to avoid for a fixed, predictable set
// of static asset types.
package mime

import "strings"

var extensions = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".mjs":  "application/javascript; charset=utf-8",
	".json": "application/json",
	".xml":  "application/xml",
	".txt":  "text/plain; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",

	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",

	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",

	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".wasm": "application/wasm",

	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

const octetStream = "application/octet-stream"

// Guess returns the media type for path based on its extension,
// falling back to application/octet-stream for unrecognized or missing
// extensions.
func Guess(path string) string {
	ext := extensionOf(path)
	if ext == "" {
		return octetStream
	}
	if ct, ok := extensions[strings.ToLower(ext)]; ok {
		return ct
	}
	return octetStream
}

func extensionOf(path string) string {
	slash := strings.LastIndexByte(path, '/')
	name := path
	if slash >= 0 {
		name = path[slash+1:]
	}
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return ""
	}
	return name[dot:]
}
