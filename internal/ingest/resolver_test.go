package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

func newTestResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "storage", "uploads"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	r := NewResolver(common.StorageConfig{
		AppURL:        "https://verify.example.com/",
		AppRoot:       root,
		FileDirectory: "storage",
	})
	return r, filepath.Join(root, "storage")
}

func TestResolveStripsAppURL(t *testing.T) {
	r, base := newTestResolver(t)

	cases := map[string]string{
		"https://verify.example.com/uploads/a.jpg":       filepath.Join(base, "uploads", "a.jpg"),
		"https://verify.example.com/uploads/my%20id.png": filepath.Join(base, "uploads", "my id.png"),
		"https://verify.example.com/uploads/b.jpg?v=2":   filepath.Join(base, "uploads", "b.jpg"),
		"https://cdn.other.net/uploads/c.jpg":            filepath.Join(base, "uploads", "c.jpg"),
		"/uploads/d.jpg":                                 filepath.Join(base, "uploads", "d.jpg"),
		"uploads/e.jpg":                                  filepath.Join(base, "uploads", "e.jpg"),
	}
	for in, want := range cases {
		got, err := r.Resolve(in)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	r, _ := newTestResolver(t)
	for _, in := range []string{
		"https://verify.example.com/../secret.txt",
		"https://verify.example.com/",
		"",
	} {
		if _, err := r.Resolve(in); !common.IsKind(err, common.ErrInvalidInput) {
			t.Fatalf("Resolve(%q) expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestLocateChecksDisk(t *testing.T) {
	r, base := newTestResolver(t)
	present := filepath.Join(base, "uploads", "here.jpg")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := r.Locate("https://verify.example.com/uploads/here.jpg")
	if err != nil || got != present {
		t.Fatalf("Locate(present) = %q, %v", got, err)
	}

	_, err = r.Locate("https://verify.example.com/uploads/missing.jpg")
	if !common.IsKind(err, common.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}

	_, err = r.Locate("https://verify.example.com/uploads")
	if !common.IsKind(err, common.ErrFileNotFound) {
		t.Fatalf("expected directory to be rejected, got %v", err)
	}
}
