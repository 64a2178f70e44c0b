package testsupport

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ZipEntry is one member of a test archive. A name ending in "/" is a
// directory entry.
type ZipEntry struct {
	Name string
	Data []byte
}

// BuildZip writes the entries, in order, to dir/name and returns the path.
// Names are stored exactly as given so tests can craft hostile archives.
func BuildZip(t testing.TB, dir, name string, entries ...ZipEntry) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		header := &zip.FileHeader{Name: entry.Name, Method: zip.Deflate}
		if strings.HasSuffix(entry.Name, "/") {
			header.Method = zip.Store
			header.SetMode(0o755 | os.ModeDir)
		} else {
			header.SetMode(0o644)
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			t.Fatalf("zip header %q: %v", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			t.Fatalf("zip write %q: %v", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	return path
}
