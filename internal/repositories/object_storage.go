package repositories

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// ObjectStorage stores binary objects and hands out URLs for them.
type ObjectStorage interface {
	Upload(ctx context.Context, objectPath string, data []byte) (string, error)
}

// AferoStorage is an ObjectStorage over an afero filesystem. URLs are
// baseURL joined with the object path.
type AferoStorage struct {
	fs      afero.Fs
	baseURL string
}

func NewAferoStorage(fs afero.Fs, baseURL string) *AferoStorage {
	return &AferoStorage{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

func cleanObjectPath(p string) (string, error) {
	cleaned := path.Clean("/" + p)
	if cleaned == "/" || strings.Contains(p, "..") {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

// Upload writes data at objectPath, replacing any previous object.
func (s *AferoStorage) Upload(ctx context.Context, objectPath string, data []byte) (string, error) {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	if dir := path.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create object directory: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", p, err)
	}
	return s.baseURL + "/" + p, nil
}

// Open reads a stored object back.
func (s *AferoStorage) Open(objectPath string) ([]byte, error) {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s not found: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read object %s: %w", p, err)
	}
	return data, nil
}
