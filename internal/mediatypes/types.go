package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultImageExtensions is the allow-list used when none is configured.
var DefaultImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}

// MimeTypes maps lowercase file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".avif": "image/avif",
	".heic": "image/heic",
	".heif": "image/heif",
}

// ExtensionSet is an immutable, case-insensitive set of file extensions.
// Keys are stored lowercase with a leading dot.
type ExtensionSet struct {
	exts map[string]struct{}
}

// NewExtensionSet builds a set from extensions given with or without the
// leading dot. Blank entries are ignored.
func NewExtensionSet(extensions []string) ExtensionSet {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = NormalizeExtension(ext)
		if ext == "" {
			continue
		}
		exts[ext] = struct{}{}
	}
	return ExtensionSet{exts: exts}
}

// NormalizeExtension lowercases ext and ensures it starts with a dot.
// Returns "" for blank input.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Matches reports whether name carries one of the set's extensions.
func (s ExtensionSet) Matches(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := s.exts[ext]
	return ok
}

// Len returns the number of extensions in the set.
func (s ExtensionSet) Len() int {
	return len(s.exts)
}

// List returns the extensions in sorted order.
func (s ExtensionSet) List() []string {
	out := make([]string, 0, len(s.exts))
	for ext := range s.exts {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// GetMimeType returns the MIME type for a file name or extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(nameOrExt string) string {
	ext := strings.ToLower(filepath.Ext(nameOrExt))
	if ext == "" {
		ext = NormalizeExtension(nameOrExt)
	}
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
