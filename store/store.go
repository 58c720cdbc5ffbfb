// Package store persists user-defined chat commands (name -> response).
//
// Three backends implement the same Store contract:
//   - MemoryStore: process-local, lost on restart.
//   - FileStore: a single JSON object rewritten on every mutation.
//   - SQLStore: a custom_commands table in Postgres or SQLite.
//
// Names are always stored with a leading sentinel ("!"). Every operation normalizes its
// name argument the same way, so callers may pass "hello" or "!hello" interchangeably.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel marks a stored name as bot-invocable.
const Sentinel = "!"

var (
	// ErrInvalidInput reports a missing or empty name or response.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists reports an add for a name that is already stored.
	ErrAlreadyExists = errors.New("command already exists")
	// ErrNotFound reports an edit, delete or lookup of an absent name.
	ErrNotFound = errors.New("command not found")
	// ErrUnavailable reports a backend read or write failure.
	ErrUnavailable = errors.New("storage unavailable")
)

// Command is a single custom chat command.
type Command struct {
	Name     string `json:"name"`
	Response string `json:"response"`
}

// Store is the uniform CRUD contract over custom commands. Mutations are atomic with
// respect to each other; concurrent adds of one name yield exactly one success.
type Store interface {
	// List returns all commands in insertion order.
	List(ctx context.Context) ([]Command, error)
	Get(ctx context.Context, name string) (Command, error)
	Add(ctx context.Context, name, response string) (Command, error)
	// Delete removes a command and returns its normalized name.
	Delete(ctx context.Context, name string) (string, error)
	Edit(ctx context.Context, name, response string) (Command, error)
	Ping(ctx context.Context) error
	Close() error
}

// NormalizeName trims whitespace and ensures exactly one leading sentinel.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, Sentinel) {
		return name
	}
	return Sentinel + name
}

// DisplayName strips the sentinel for presentation.
func DisplayName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), Sentinel)
}

// validName normalizes name and rejects names that carry nothing but the sentinel.
func validName(name string) (string, error) {
	n := NormalizeName(name)
	if strings.TrimSpace(DisplayName(n)) == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return n, nil
}

func validResponse(response string) (string, error) {
	r := strings.TrimSpace(response)
	if r == "" {
		return "", fmt.Errorf("%w: response is required", ErrInvalidInput)
	}
	return r, nil
}

// snapshot is an ordered, copy-on-write command list shared by the in-process backends.
// Mutators return a new slice so a failed persist can keep the previous snapshot.
type snapshot []Command

func (s snapshot) index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s snapshot) clone() snapshot {
	out := make(snapshot, len(s))
	copy(out, s)
	return out
}

func (s snapshot) with(c Command) snapshot {
	out := make(snapshot, len(s), len(s)+1)
	copy(out, s)
	return append(out, c)
}

func (s snapshot) without(i int) snapshot {
	out := make(snapshot, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func (s snapshot) replaced(i int, response string) snapshot {
	out := s.clone()
	out[i].Response = response
	return out
}

// mutation computes the next snapshot. Validation, normalization and the existence
// checks of the in-process backends live in these constructors.
type mutation func(s snapshot) (snapshot, Command, error)

func addMutation(name, response string) mutation {
	return func(s snapshot) (snapshot, Command, error) {
		n, err := validName(name)
		if err != nil {
			return nil, Command{}, err
		}
		r, err := validResponse(response)
		if err != nil {
			return nil, Command{}, err
		}
		if s.index(n) >= 0 {
			return nil, Command{}, ErrAlreadyExists
		}
		c := Command{Name: n, Response: r}
		return s.with(c), c, nil
	}
}

func deleteMutation(name string) mutation {
	return func(s snapshot) (snapshot, Command, error) {
		n := NormalizeName(name)
		i := s.index(n)
		if i < 0 {
			return nil, Command{}, ErrNotFound
		}
		return s.without(i), s[i], nil
	}
}

func editMutation(name, response string) mutation {
	return func(s snapshot) (snapshot, Command, error) {
		n := NormalizeName(name)
		i := s.index(n)
		if i < 0 {
			return nil, Command{}, ErrNotFound
		}
		r, err := validResponse(response)
		if err != nil {
			return nil, Command{}, err
		}
		return s.replaced(i, r), Command{Name: n, Response: r}, nil
	}
}
