package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateLaysOutPaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "work")
	ws, err := Create(root, "abc123")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = ws.Cleanup() })

	if ws.Path() != filepath.Join(root, "job-abc123") {
		t.Fatalf("unexpected path %q", ws.Path())
	}
	info, err := os.Stat(ws.Path())
	if err != nil || !info.IsDir() {
		t.Fatalf("workspace dir missing: %v", err)
	}
	if got := ws.SegmentPath("A", ".mkv"); got != filepath.Join(ws.Path(), "segment-a.mkv") {
		t.Fatalf("SegmentPath = %q", got)
	}
	if got := ws.SegmentPath("b", ""); got != filepath.Join(ws.Path(), "segment-b.mp4") {
		t.Fatalf("SegmentPath default ext = %q", got)
	}
	if got := ws.PassLogPrefix("a"); got != filepath.Join(ws.Path(), "passlog-a") {
		t.Fatalf("PassLogPrefix = %q", got)
	}
	if got := ws.ManifestPath(); got != filepath.Join(ws.Path(), "concat.txt") {
		t.Fatalf("ManifestPath = %q", got)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	root := t.TempDir()
	cases := []struct{ root, id string }{
		{"", "x"},
		{root, ""},
		{root, "../escape"},
	}
	for _, tc := range cases {
		if _, err := Create(tc.root, tc.id); err == nil {
			t.Errorf("Create(%q, %q) should fail", tc.root, tc.id)
		}
	}
}

func TestCreateRejectsDuplicateJob(t *testing.T) {
	root := t.TempDir()
	ws, err := Create(root, "dup")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = ws.Cleanup() })
	if _, err := Create(root, "dup"); err == nil {
		t.Fatal("expected second Create with same id to fail")
	}
	if _, err := os.Stat(ws.Path()); err != nil {
		t.Fatalf("first workspace must survive: %v", err)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	ws, err := Create(t.TempDir(), "once")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(ws.SegmentPath("a", ""), []byte("data"), 0o644); err != nil {
		t.Fatalf("write segment: %v", err)
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("first Cleanup: %v", err)
	}
	if _, err := os.Stat(ws.Path()); !os.IsNotExist(err) {
		t.Fatal("workspace should be gone")
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}

	var nilWS *Workspace
	if err := nilWS.Cleanup(); err != nil {
		t.Fatalf("nil Cleanup: %v", err)
	}
}

func TestRemoveFilesIgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	if err := os.WriteFile(present, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := RemoveFiles(present, filepath.Join(dir, "absent"), " "); err != nil {
		t.Fatalf("RemoveFiles: %v", err)
	}
	if _, err := os.Stat(present); !os.IsNotExist(err) {
		t.Fatal("present file should be removed")
	}
}
