package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Object is a stored artifact as the store sees it.
type Object struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// Store is the artifact storage contract. Artifacts are immutable: a name is
// written once and never rewritten.
type Store interface {
	// Put stores the artifact under name. size is the exact byte length of r.
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	// List returns every stored artifact.
	List(ctx context.Context) ([]Object, error)
	// Delete removes a stored artifact. Deleting an absent name is an error.
	Delete(ctx context.Context, name string) error
	// URL returns a retrievable location for a stored artifact.
	URL(name string) string
}

// FSStore stores artifacts as files under a root directory.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Put writes to a temp file in the root and renames it into place, so a
// partially written artifact is never visible under its final name.
func (s *FSStore) Put(_ context.Context, name string, r io.Reader, size int64) error {
	tmp, err := os.CreateTemp(s.root, ".put-*")
	if err != nil {
		return fmt.Errorf("store put %s: %w", name, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store put %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store put %s: %w", name, err)
	}
	if n != size {
		return fmt.Errorf("store put %s: wrote %d bytes, expected %d", name, n, size)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("store put %s: %w", name, err)
	}
	return nil
}

func (s *FSStore) List(_ context.Context) ([]Object, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("store list: %w", err)
	}

	var objects []Object
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ArtifactSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("store list: %w", err)
		}
		objects = append(objects, Object{
			Name:         e.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	}
	return objects, nil
}

func (s *FSStore) Delete(_ context.Context, name string) error {
	if err := os.Remove(filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("store delete %s: %w", name, err)
	}
	return nil
}

func (s *FSStore) URL(name string) string {
	abs, err := filepath.Abs(filepath.Join(s.root, name))
	if err != nil {
		abs = filepath.Join(s.root, name)
	}
	return "file://" + abs
}
