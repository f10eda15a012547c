package store

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps every document as a plain file under <root>/<bucket>/<key>.
type FileStore struct {
	root string
}

func NewFile(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, oops.In("store").Errorf("failed to create data dir: %w", err)
	}

	slog.Info("File store opened", "root", root)

	return &FileStore{root: root}, nil
}

func (s *FileStore) path(bucket, key string) string {
	return filepath.Join(s.root, bucket, filepath.FromSlash(key))
}

func (s *FileStore) Read(_ context.Context, bucket, key string) (string, error) {
	if err := validateName(bucket, key); err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.path(bucket, key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotExist
	}
	if err != nil {
		return "", oops.In("store").With("bucket", bucket, "key", key).Wrapf(err, "failed to read document")
	}

	return string(data), nil
}

// Write replaces the document atomically through a temp file in the same directory.
func (s *FileStore) Write(_ context.Context, bucket, key, text string) error {
	if err := validateName(bucket, key); err != nil {
		return err
	}

	path := s.path(bucket, key)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return oops.In("store").With("bucket", bucket, "key", key).Wrapf(err, "failed to create directory")
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return oops.In("store").With("bucket", bucket, "key", key).Wrapf(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.WriteString(text); err != nil {
		tmp.Close()
		return oops.In("store").With("bucket", bucket, "key", key).Wrapf(err, "failed to write document")
	}
	if err = tmp.Close(); err != nil {
		return oops.In("store").With("bucket", bucket, "key", key).Wrapf(err, "failed to close document")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return oops.In("store").With("bucket", bucket, "key", key).Wrapf(err, "failed to replace document")
	}

	slog.Debug("Document written", "bucket", bucket, "key", key, "size", len(text))

	return nil
}

func (s *FileStore) Shutdown() error {
	return nil
}
