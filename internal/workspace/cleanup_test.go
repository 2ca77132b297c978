package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"videocompress/internal/logging"
)

func makeOldDir(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	ts := time.Now().Add(-age)
	if err := os.Chtimes(dir, ts, ts); err != nil {
		t.Fatalf("set time on %s: %v", name, err)
	}
	return dir
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldWorkspaces(t *testing.T) {
	root := t.TempDir()
	oldDir := makeOldDir(t, root, "job-old", 2*time.Hour)
	recentDir := makeOldDir(t, root, "job-recent", 0)

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("removed = %v, want [%s]", result.Removed, oldDir)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Fatal("old workspace should be removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Fatal("recent workspace should still exist")
	}
}

func TestCleanStaleIgnoresForeignEntries(t *testing.T) {
	root := t.TempDir()
	foreign := makeOldDir(t, root, "not-a-job", 48*time.Hour)
	file := filepath.Join(root, "job-file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(file, old, old); err != nil {
		t.Fatalf("set file time: %v", err)
	}

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatal("non-job directory should not be touched")
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatal("file should not be touched")
	}
}

func TestCleanStaleSkipsLockedWorkspace(t *testing.T) {
	root := t.TempDir()
	ws, err := Create(root, "live")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = ws.Cleanup() })

	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(ws.Path(), old, old); err != nil {
		t.Fatalf("set time: %v", err)
	}

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("locked workspace removed: %v", result.Removed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != ws.Path() {
		t.Fatalf("skipped = %v, want [%s]", result.Skipped, ws.Path())
	}
	if _, err := os.Stat(ws.Path()); err != nil {
		t.Fatalf("live workspace missing: %v", err)
	}
}

func TestCleanStaleRemovesReleasedWorkspace(t *testing.T) {
	root := t.TempDir()
	dir := makeOldDir(t, root, "job-crashed", 3*time.Hour)
	if err := os.WriteFile(filepath.Join(dir, lockFileName), nil, 0o600); err != nil {
		t.Fatalf("write lock file: %v", err)
	}
	old := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(dir, old, old); err != nil {
		t.Fatalf("set time: %v", err)
	}

	result := CleanStale(context.Background(), root, time.Hour, nil)
	if len(result.Removed) != 1 {
		t.Fatalf("expected crashed workspace removed, got %+v", result)
	}
}

func TestCleanStaleHonorsCancelledContext(t *testing.T) {
	root := t.TempDir()
	dir := makeOldDir(t, root, "job-old", 2*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := CleanStale(ctx, root, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals after cancel, got %v", result.Removed)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatal("directory should survive a cancelled sweep")
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	makeOldDir(t, root, "job-idle", time.Hour)
	if err := os.WriteFile(filepath.Join(root, "job-idle", "segment-a.mp4"), make([]byte, 128), 0o644); err != nil {
		t.Fatalf("write segment: %v", err)
	}
	makeOldDir(t, root, "other", time.Hour)

	ws, err := Create(root, "live")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = ws.Cleanup() })

	dirs, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 workspaces, got %d: %+v", len(dirs), dirs)
	}
	byName := map[string]DirInfo{}
	for _, d := range dirs {
		byName[d.Name] = d
	}
	idle, ok := byName["job-idle"]
	if !ok {
		t.Fatal("job-idle not listed")
	}
	if idle.Locked {
		t.Fatal("idle workspace reported locked")
	}
	if idle.Size != 128 {
		t.Fatalf("idle size = %d, want 128", idle.Size)
	}
	if _, err := os.Stat(filepath.Join(idle.Path, lockFileName)); !os.IsNotExist(err) {
		t.Fatal("List should not create lock files")
	}
	if !byName["job-live"].Locked {
		t.Fatal("live workspace should be reported locked")
	}
}

func TestListMissingRoot(t *testing.T) {
	dirs, err := List(filepath.Join(t.TempDir(), "missing"))
	if err != nil || dirs != nil {
		t.Fatalf("List(missing) = %v, %v", dirs, err)
	}
}
