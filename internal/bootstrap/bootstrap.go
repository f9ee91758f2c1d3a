// Package bootstrap turns a loaded configuration into the collaborators
// every command needs: the logger, the document store and the processor.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mwiki/internal/config"
	"mwiki/internal/content"
	"mwiki/internal/store"
	"mwiki/internal/store/mongo"
	"mwiki/internal/store/sqlite"
	"mwiki/internal/wiki"
)

const sqliteFileName = "pages.sqlite"

func OpenStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite, "":
		if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return sqlite.Open(ctx, filepath.Join(cfg.DataPath, sqliteFileName), sqlite.Options{
			BusyTimeout: cfg.DBBusyTimeout,
			LockTimeout: cfg.DBLockTimeout,
		})
	case config.StoreMongo:
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store %q (want %s or %s)", cfg.Store, config.StoreSQLite, config.StoreMongo)
	}
}

func NewProcessor(cfg config.Config) *content.Processor {
	opts := []content.Option{content.WithHighlightStyle(cfg.HighlightStyle)}
	if cfg.MarkdownUnsafe {
		opts = append(opts, content.WithUnsafeHTML())
	}
	return content.NewProcessor(opts...)
}

// OpenWiki opens the configured store and wraps it. Callers close the
// returned store when done.
func OpenWiki(ctx context.Context, cfg config.Config) (*wiki.Wiki, store.Store, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return wiki.New(st, NewProcessor(cfg)), st, nil
}
