package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// NameFields holds the values a filename template can reference.
type NameFields struct {
	Title       string
	User        string
	ID          int64
	Timestamp   int64
	Playlist    string
	TrackNumber string
}

// maxFilenameBytes is the common filesystem limit for a single name component.
const maxFilenameBytes = 255

// FormatName expands a filename template like "{user} - {title}".
// Unknown placeholders are left as-is so mistakes stay visible.
func FormatName(template string, f NameFields) string {
	r := strings.NewReplacer(
		"{title}", f.Title,
		"{user}", f.User,
		"{id}", strconv.FormatInt(f.ID, 10),
		"{timestamp}", strconv.FormatInt(f.Timestamp, 10),
		"{playlist}", f.Playlist,
		"{tracknumber}", f.TrackNumber,
	)
	return r.Replace(template)
}

// SanitizeFilename removes characters that are invalid in filenames on the
// common filesystems and collapses the result to something safe to create.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			// drop control characters
		default:
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	s = strings.Trim(s, ".")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// TruncateFilename caps a filename at 255 bytes, preserving the extension
// and cutting the stem at a rune boundary.
func TruncateFilename(name string) string {
	if len(name) <= maxFilenameBytes {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= maxFilenameBytes {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)
	budget := maxFilenameBytes - len(ext)
	for len(stem) > budget {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}
	return stem + ext
}

// ParseSize converts strings like "500k", "10m" or "1g" into bytes.
// A bare number is taken as bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "k"):
		multiplier, s = 1024, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		multiplier, s = 1024*1024, strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "g"):
		multiplier, s = 1024*1024*1024, strings.TrimSuffix(s, "g")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * multiplier, nil
}

// UniquePath returns path if free, otherwise "name (1).ext", "name (2).ext"...
func UniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Utime sets the file modification time, e.g. to the track creation date.
func Utime(path string, mtime time.Time) error {
	return os.Chtimes(path, time.Now(), mtime)
}
