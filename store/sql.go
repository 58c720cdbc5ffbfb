package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/onnwee/command-tender/backend/db"
)

// SQLStore keeps commands in the custom_commands table. Atomicity comes from the table's
// unique name constraint and single-statement writes, so it holds across processes too.
type SQLStore struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(database *sql.DB, dialect db.Dialect) *SQLStore {
	return &SQLStore{db: database, dialect: dialect}
}

// DB exposes the underlying handle for health checks and tooling.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) q(query string) string { return db.Rebind(s.dialect, query) }

func (s *SQLStore) List(ctx context.Context) ([]Command, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, response FROM custom_commands ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list commands: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	cmds := []Command{}
	for rows.Next() {
		var c Command
		if err := rows.Scan(&c.Name, &c.Response); err != nil {
			return nil, fmt.Errorf("%w: scan command: %w", ErrUnavailable, err)
		}
		cmds = append(cmds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list commands: %w", ErrUnavailable, err)
	}
	return cmds, nil
}

func (s *SQLStore) Get(ctx context.Context, name string) (Command, error) {
	c := Command{Name: NormalizeName(name)}
	err := s.db.QueryRowContext(ctx, s.q(`SELECT response FROM custom_commands WHERE name = ?`), c.Name).Scan(&c.Response)
	if errors.Is(err, sql.ErrNoRows) {
		return Command{}, ErrNotFound
	}
	if err != nil {
		return Command{}, fmt.Errorf("%w: get command: %w", ErrUnavailable, err)
	}
	return c, nil
}

func (s *SQLStore) Add(ctx context.Context, name, response string) (Command, error) {
	n, err := validName(name)
	if err != nil {
		return Command{}, err
	}
	r, err := validResponse(response)
	if err != nil {
		return Command{}, err
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO custom_commands (name, response) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`),
		n, r)
	if err != nil {
		return Command{}, fmt.Errorf("%w: insert command: %w", ErrUnavailable, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return Command{}, fmt.Errorf("%w: insert command: %w", ErrUnavailable, err)
	} else if affected == 0 {
		return Command{}, ErrAlreadyExists
	}
	return Command{Name: n, Response: r}, nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) (string, error) {
	n := NormalizeName(name)
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM custom_commands WHERE name = ?`), n)
	if err != nil {
		return "", fmt.Errorf("%w: delete command: %w", ErrUnavailable, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return "", fmt.Errorf("%w: delete command: %w", ErrUnavailable, err)
	} else if affected == 0 {
		return "", ErrNotFound
	}
	return n, nil
}

func (s *SQLStore) Edit(ctx context.Context, name, response string) (Command, error) {
	n := NormalizeName(name)
	r, err := validResponse(response)
	if err != nil {
		// An absent name still reports ErrNotFound first, matching the in-process backends.
		if _, gerr := s.Get(ctx, n); gerr != nil {
			return Command{}, gerr
		}
		return Command{}, err
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE custom_commands SET response = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?`),
		r, n)
	if err != nil {
		return Command{}, fmt.Errorf("%w: update command: %w", ErrUnavailable, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return Command{}, fmt.Errorf("%w: update command: %w", ErrUnavailable, err)
	} else if affected == 0 {
		return Command{}, ErrNotFound
	}
	return Command{Name: n, Response: r}, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
