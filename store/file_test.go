package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileStorePersistedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	ctx := context.Background()
	_, _ = s.Add(ctx, "discord", "join us")
	_, _ = s.Add(ctx, "!lurk", "enjoy the lurk")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("file is not a JSON object: %v\n%s", err, data)
	}
	if raw["!discord"]["response"] != "join us" || raw["!lurk"]["response"] != "enjoy the lurk" {
		t.Errorf("unexpected layout: %s", data)
	}
	if strings.Index(string(data), "!discord") > strings.Index(string(data), "!lurk") {
		t.Errorf("insertion order not preserved on disk: %s", data)
	}
}

func TestFileStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "commands.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	ctx := context.Background()
	for _, n := range []string{"c", "a", "b"} {
		if _, err := s.Add(ctx, n, "resp "+n); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	_, _ = s.Edit(ctx, "a", "edited")
	_, _ = s.Delete(ctx, "c")

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	cmds, _ := reopened.List(ctx)
	want := []Command{{Name: "!a", Response: "edited"}, {Name: "!b", Response: "resp b"}}
	if len(cmds) != len(want) {
		t.Fatalf("reopened = %+v, want %+v", cmds, want)
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("reopened[%d] = %+v, want %+v", i, cmds[i], want[i])
		}
	}
}

func TestFileStoreLoadsLegacyNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	legacy := `{"hello": {"response": "hi"}, "!bye": {"response": "cya"}, "": {"response": "junk"}}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	cmds, _ := s.List(context.Background())
	if len(cmds) != 2 || cmds[0].Name != "!hello" || cmds[1].Name != "!bye" {
		t.Errorf("loaded = %+v", cmds)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	if err := os.WriteFile(path, []byte(`["not", "an", "object"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); !errors.Is(err, ErrUnavailable) {
		t.Errorf("OpenFile(corrupt) err = %v, want ErrUnavailable", err)
	}
}

func TestFileStoreSaveFailureKeepsSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, "commands.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	ctx := context.Background()
	if _, err := s.Add(ctx, "keep", "me"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Replace the data directory with a plain file so every write fails.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("blocker"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Add(ctx, "new", "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Add err = %v, want ErrUnavailable", err)
	}
	if _, err := s.Edit(ctx, "keep", "changed"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Edit err = %v, want ErrUnavailable", err)
	}
	if _, err := s.Delete(ctx, "keep"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Delete err = %v, want ErrUnavailable", err)
	}
	cmds, _ := s.List(ctx)
	if len(cmds) != 1 || cmds[0] != (Command{Name: "!keep", Response: "me"}) {
		t.Errorf("snapshot changed after failed saves: %+v", cmds)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping err = %v, want ErrUnavailable", err)
	}
}

func TestFileStoreReloadKeepsSnapshotOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	s, _ := OpenFile(path)
	ctx := context.Background()
	_, _ = s.Add(ctx, "a", "1")

	if err := os.WriteFile(path, []byte(`{"!a": {"response": `), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err == nil {
		t.Fatal("expected reload error for truncated file")
	}
	if c, err := s.Get(ctx, "a"); err != nil || c.Response != "1" {
		t.Errorf("snapshot lost after failed reload: %+v, %v", c, err)
	}
}

func TestFileStoreWatchReloadsExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Watch(ctx); err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"!edited": {"response": "by hand"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c, err := s.Get(ctx, "edited"); err == nil && c.Response == "by hand" {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("external edit was not picked up")
}
