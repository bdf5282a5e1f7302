package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const spoolPrefix = "innermap-"

// maxNameLen bounds the client-supplied part of a spooled filename.
const maxNameLen = 100

// Spool writes r to a new temporary file in dir and returns its path and a
// cleanup function that removes it. The name is "innermap-<uuid>-<base>"
// where base is the sanitized client filename, so concurrent uploads with
// the same name never share a path. On error nothing is left on disk.
func Spool(dir, filename string, r io.Reader) (string, func(), error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, spoolPrefix+uuid.NewString()+"-"+SanitizeName(filename))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	cleanup := func() {
		os.Remove(path)
	}
	return path, cleanup, nil
}

// SanitizeName reduces a client filename to a safe basename that keeps its
// extension. Returns "upload" when nothing usable remains.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	clean := strings.TrimLeft(b.String(), ".")
	if clean == "" || strings.Trim(clean, "_") == "" {
		return "upload"
	}

	if len(clean) > maxNameLen {
		ext := filepath.Ext(clean)
		if len(ext) > 16 {
			ext = ""
		}
		clean = clean[:maxNameLen-len(ext)] + ext
	}
	return clean
}
