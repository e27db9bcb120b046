// Package archive packs a run's output directory into a tar.gz artifact and
// stores it in a pluggable artifact store with a fixed retention period.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ErrEmptyOutput signals that the output directory held no regular files at
// archive time. It is a distinct failure, not a download failure.
var ErrEmptyOutput = errors.New("output directory is empty")

// packResult summarizes a completed pack.
type packResult struct {
	FileCount int
	// Bytes is the compressed size of the archive.
	Bytes int64
}

// pack writes a tar.gz of every regular file under dir to w. File entries are
// ordered by relative path so the same tree always packs the same way.
func pack(w io.Writer, dir string) (packResult, error) {
	paths, err := regularFiles(dir)
	if err != nil {
		return packResult{}, err
	}
	if len(paths) == 0 {
		return packResult{}, ErrEmptyOutput
	}

	cw := &countingWriter{w: w}
	gz := gzip.NewWriter(cw)
	tw := tar.NewWriter(gz)

	for _, rel := range paths {
		if err := packFile(tw, dir, rel); err != nil {
			return packResult{}, err
		}
	}

	if err := tw.Close(); err != nil {
		return packResult{}, fmt.Errorf("finalize tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return packResult{}, fmt.Errorf("finalize gzip: %w", err)
	}

	return packResult{FileCount: len(paths), Bytes: cw.n}, nil
}

func packFile(tw *tar.Writer, dir, rel string) error {
	path := filepath.Join(dir, rel)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("header %s: %w", rel, err)
	}
	hdr.Name = filepath.ToSlash(rel)

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", rel, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(tw, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return f.Close()
}

// regularFiles returns the sorted relative paths of every regular file
// under dir.
func regularFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
