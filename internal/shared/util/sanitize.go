package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameBytes caps the stored part of an uploaded file name. Storage keys
// add a 36 byte uuid and a hashed user directory on top.
const MaxFileNameBytes = 120

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns a client supplied name into a single storage key
// segment. Separators and characters that object stores or browsers mishandle
// become underscores, control characters are dropped, and long names are cut
// down while keeping the extension. Traversal patterns are rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") || !utf8.ValidString(name) {
		return "", ErrInvalidFileName
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsControl(r):
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), " .")
	if s == "" {
		return "", ErrInvalidFileName
	}
	return truncateName(s, MaxFileNameBytes), nil
}

func truncateName(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	ext := path.Ext(s)
	if len(ext) > 16 {
		ext = ""
	}
	base := s[:len(s)-len(ext)]
	cut := limit - len(ext)
	for cut > 0 && !utf8.RuneStart(base[cut]) {
		cut--
	}
	return base[:cut] + ext
}
