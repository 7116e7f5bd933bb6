package util

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFileNameBytes = 200

// ErrInvalidFileName reports a name that cannot be made safe.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns a client-supplied name into a single object key
// segment. Separators and control characters become underscores and leading
// dots are dropped so the local watcher does not treat the file as hidden.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameBytes {
		s = truncateKeepExt(s, maxFileNameBytes)
	}
	return s, nil
}

func truncateKeepExt(s string, limit int) string {
	ext := ""
	if i := strings.LastIndexByte(s, '.'); i > 0 && len(s)-i <= 10 {
		ext = s[i:]
		s = s[:i]
	}
	limit -= len(ext)
	for len(s) > limit {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s + ext
}
