package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"vankeyword/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
)

var ErrNotExist = errors.New("document does not exist")

const emptyLexicon = `{"work":[]}`

// Store keeps opaque text documents grouped by bucket (one bucket per bot).
type Store interface {
	// Read returns ErrNotExist when the document was never written.
	Read(ctx context.Context, bucket, key string) (string, error)
	Write(ctx context.Context, bucket, key, text string) error
	Shutdown() error
}

func New(di *do.Injector) (Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	switch cfg.Storage.Driver {
	case "sqlite":
		return NewSQLite(cfg.Storage.SQLitePath)
	case "file":
		return NewFile(cfg.Storage.DataDir)
	default:
		return nil, oops.In("store").Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// ReadOrDefault resolves absent documents to their per-key default: an empty
// lexicon for lexicon documents and empty text for everything else.
func ReadOrDefault(ctx context.Context, s Store, bucket, key string) (string, error) {
	text, err := s.Read(ctx, bucket, key)
	if errors.Is(err, ErrNotExist) {
		return DefaultFor(key), nil
	}

	return text, err
}

func DefaultFor(key string) string {
	if strings.HasPrefix(key, "lexicon/") && strings.HasSuffix(key, ".json") {
		return emptyLexicon
	}

	return ""
}

func validateName(bucket, key string) error {
	if bucket == "" || key == "" {
		return oops.In("store").Errorf("bucket and key are required")
	}
	if !filepath.IsLocal(bucket) || strings.ContainsAny(bucket, `/\`) {
		return oops.In("store").With("bucket", bucket).Errorf("invalid bucket name")
	}
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return oops.In("store").With("key", key).Errorf("invalid document key")
	}

	return nil
}
