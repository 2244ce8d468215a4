package session

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestFileStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := fs.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on empty store = %v, want ErrNotFound", err)
	}

	first, err := fs.Ensure(ctx, "ada")
	if err != nil {
		t.Fatal(err)
	}
	if first.UserID == "" || first.Name != "ada" {
		t.Fatalf("Ensure = %+v", first)
	}

	again, err := fs.Ensure(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if again.UserID != first.UserID || again.Name != "ada" {
		t.Errorf("Ensure should reuse the session: %+v vs %+v", again, first)
	}

	renamed, err := fs.Ensure(ctx, "grace")
	if err != nil {
		t.Fatal(err)
	}
	if renamed.UserID != first.UserID || renamed.Name != "grace" {
		t.Errorf("rename = %+v", renamed)
	}

	info, err := os.Stat(fs.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("session file mode = %v, want 0600", perm)
	}

	if err := fs.Delete(ctx); err != nil {
		t.Fatal(err)
	}
	if err := fs.Delete(ctx); err != nil {
		t.Errorf("second Delete = %v", err)
	}
	if _, err := fs.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after Delete = %v", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fs.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Load(context.Background()); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Load = %v, want parse error", err)
	}
}

func TestNewFileStoreXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	fs, err := NewFileStore("")
	if err != nil {
		t.Fatal(err)
	}
	if want := dir + "/memorywall/session.json"; fs.Path() != want {
		t.Errorf("Path() = %q, want %q", fs.Path(), want)
	}
}
