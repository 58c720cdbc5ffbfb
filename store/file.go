package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileStore persists commands as one JSON object mapping the sentinel-prefixed name to
// {"response": "..."}. The file is rewritten wholesale on every mutation and the in-memory
// snapshot only advances once the write has succeeded.
type FileStore struct {
	mu   sync.RWMutex
	path string
	cmds snapshot
}

type fileEntry struct {
	Response string `json:"response"`
}

// OpenFile loads path (a missing file is an empty store) and creates its parent directory.
func OpenFile(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	cmds, err := readCommandsFile(path)
	if err != nil {
		return nil, err
	}
	slog.Info("file store loaded", slog.String("path", path), slog.Int("commands", len(cmds)), slog.String("component", "store"))
	return &FileStore{path: path, cmds: cmds}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) List(ctx context.Context) ([]Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cmds.clone(), nil
}

func (s *FileStore) Get(ctx context.Context, name string) (Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.cmds.index(NormalizeName(name)); i >= 0 {
		return s.cmds[i], nil
	}
	return Command{}, ErrNotFound
}

func (s *FileStore) Add(ctx context.Context, name, response string) (Command, error) {
	return s.apply(addMutation(name, response))
}

func (s *FileStore) Delete(ctx context.Context, name string) (string, error) {
	c, err := s.apply(deleteMutation(name))
	return c.Name, err
}

func (s *FileStore) Edit(ctx context.Context, name, response string) (Command, error) {
	return s.apply(editMutation(name, response))
}

func (s *FileStore) apply(m mutation) (Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, c, err := m(s.cmds)
	if err != nil {
		return Command{}, err
	}
	if err := writeCommandsFile(s.path, next); err != nil {
		slog.Error("file store save failed, keeping previous snapshot", slog.String("path", s.path), slog.Any("err", err), slog.String("component", "store"))
		return Command{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.cmds = next
	return c, nil
}

// Reload replaces the snapshot with the file's current content. On a read or parse
// error the previous snapshot stays in place.
func (s *FileStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmds, err := readCommandsFile(s.path)
	if err != nil {
		return err
	}
	s.cmds = cmds
	return nil
}

// Watch reloads the store whenever the file is changed by someone else, until ctx is done.
// The parent directory is watched because saves replace the file via rename.
func (s *FileStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	go func() {
		defer w.Close()
		// Editors emit bursts of events; collapse them into one reload.
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					debounce = time.After(100 * time.Millisecond)
				}
			case <-debounce:
				debounce = nil
				if err := s.Reload(); err != nil {
					slog.Warn("file store reload failed, keeping previous snapshot", slog.String("path", s.path), slog.Any("err", err), slog.String("component", "store"))
					continue
				}
				slog.Info("file store reloaded", slog.String("path", s.path), slog.String("component", "store"))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("file watcher error", slog.Any("err", err), slog.String("component", "store"))
			}
		}
	}()
	return nil
}

// Ping checks that the backing directory is still reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnavailable, filepath.Dir(s.path))
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func readCommandsFile(path string) (snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, path, err)
	}
	cmds, err := decodeCommands(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrUnavailable, path, err)
	}
	return cmds, nil
}

// writeCommandsFile replaces path atomically: temp file in the same directory, then rename.
func writeCommandsFile(path string, cmds snapshot) error {
	data, err := encodeCommands(cmds)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// decodeCommands reads the JSON object token by token so key order survives.
// Names are normalized; a repeated key keeps its first position and its last response.
func decodeCommands(data []byte) (snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return snapshot{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}
	cmds := snapshot{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var e fileEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("entry %q: %w", key, err)
		}
		name := NormalizeName(key)
		if DisplayName(name) == "" {
			continue
		}
		if i := cmds.index(name); i >= 0 {
			cmds[i].Response = e.Response
			continue
		}
		cmds = append(cmds, Command{Name: name, Response: e.Response})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return cmds, nil
}

// encodeCommands writes cmds as an indented JSON object in snapshot order.
func encodeCommands(cmds snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range cmds {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fileEntry{Response: c.Response})
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
