package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/onnwee/command-tender/backend/config"
	"github.com/onnwee/command-tender/backend/db"
)

// Open selects and opens the backend named by cfg.DBDsn:
//
//	""                     -> JSON file at cfg.CommandsFile
//	"memory:"              -> in-memory
//	"postgres://..."       -> Postgres
//	"sqlite:..." / "file:" -> SQLite
//
// Relational backends are migrated before use. When cfg.WatchFile is set the file backend
// also reloads on external edits until ctx is done.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	dsn := strings.TrimSpace(cfg.DBDsn)
	switch {
	case dsn == "":
		fs, err := OpenFile(cfg.CommandsFile)
		if err != nil {
			return nil, err
		}
		if cfg.WatchFile {
			if err := fs.Watch(ctx); err != nil {
				slog.Warn("file watch disabled", slog.Any("err", err), slog.String("component", "store"))
			}
		}
		slog.Info("using file store", slog.String("path", fs.Path()), slog.String("component", "store"))
		return fs, nil
	case dsn == "memory:" || dsn == "memory://":
		slog.Warn("using in-memory store; commands are lost on restart", slog.String("component", "store"))
		return NewMemoryStore(), nil
	}

	database, dialect, err := db.Connect(dsn)
	if err != nil {
		return nil, err
	}
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	if err := db.Prepare(database, dialect); err != nil {
		_ = database.Close()
		return nil, err
	}
	slog.Info("using sql store", slog.String("dialect", string(dialect)), slog.String("component", "store"))
	return NewSQLStore(database, dialect), nil
}
