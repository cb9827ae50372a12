package ingest

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

// Resolver maps the public URLs stored in avsdocs.doc_url onto files under the
// storage directory.
type Resolver struct {
	appURL  string
	baseDir string
}

func NewResolver(storage common.StorageConfig) *Resolver {
	return &Resolver{
		appURL:  strings.TrimRight(storage.AppURL, "/"),
		baseDir: filepath.Clean(storage.BaseDir()),
	}
}

func (r *Resolver) BaseDir() string { return r.baseDir }

// Resolve strips the public base URL and joins what is left onto the base
// directory. It does not touch the filesystem.
func (r *Resolver) Resolve(docURL string) (string, error) {
	rel, err := r.relative(strings.TrimSpace(docURL))
	if err != nil {
		return "", err
	}
	if rel == "" {
		return "", common.KindError(common.ErrInvalidInput, "empty document path in "+docURL, nil)
	}

	full := filepath.Join(r.baseDir, filepath.FromSlash(rel))
	back, err := filepath.Rel(r.baseDir, full)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", common.KindError(common.ErrInvalidInput, "document path escapes storage directory: "+docURL, nil)
	}
	return full, nil
}

func (r *Resolver) relative(docURL string) (string, error) {
	rest := docURL
	switch {
	case r.appURL != "" && strings.HasPrefix(docURL, r.appURL):
		rest = strings.TrimPrefix(docURL, r.appURL)
	case strings.Contains(docURL, "://"):
		// absolute URL on another host: keep only its path
		u, err := url.Parse(docURL)
		if err != nil {
			return "", common.KindError(common.ErrInvalidInput, "parse document url", err)
		}
		rest = u.Path
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	return strings.TrimLeft(rest, "/"), nil
}

// Locate resolves docURL and checks that a regular file exists there.
func (r *Resolver) Locate(docURL string) (string, error) {
	path, err := r.Resolve(docURL)
	if err != nil {
		return "", err
	}
	if err := CheckFile(path); err != nil {
		return path, err
	}
	return path, nil
}

// CheckFile fails with ErrFileNotFound unless path is an existing regular file.
func CheckFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return common.KindError(common.ErrFileNotFound, path, err)
	}
	if !info.Mode().IsRegular() {
		return common.KindError(common.ErrFileNotFound, path+" is not a regular file", nil)
	}
	return nil
}
