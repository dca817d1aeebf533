package importer

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// file.go gates uploads before any parsing happens. Extension and size are
// checked against the raw file metadata; the content is never touched until
// both checks pass.

// FileKind identifies the parser a file should be routed to.
type FileKind int

const (
	FileCSV FileKind = iota
	FileJSON
)

// ValidateFileType checks the file extension and returns the parser kind.
// Only .csv and .json uploads are accepted.
func ValidateFileType(name string) (FileKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FileCSV, nil
	case ".json":
		return FileJSON, nil
	default:
		return 0, newError(KindUnsupportedFileType, "unsupported file type %q: only .csv and .json files are accepted", filepath.Ext(name))
	}
}

// ValidateFileSize rejects files larger than MaxFileSize.
func ValidateFileSize(size int64) error {
	if size > MaxFileSize {
		return newError(KindFileTooLarge, "file is %d bytes, maximum is %d bytes (5MB)", size, MaxFileSize)
	}
	return nil
}

// SanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD so a file saved
// in a legacy encoding produces readable errors instead of garbage tokens.
func SanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
