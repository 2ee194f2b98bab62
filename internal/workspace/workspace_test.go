package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_CreateAndCleanup(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewManager(tempBase)

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	wsPath := mgr.GetPath()
	if wsPath == "" {
		t.Fatal("GetPath() returned empty string")
	}
	if filepath.Dir(wsPath) != tempBase {
		t.Errorf("workspace %s not under %s", wsPath, tempBase)
	}
	if !strings.HasPrefix(filepath.Base(wsPath), TempDirPrefix+"-") {
		t.Errorf("Expected prefixed directory, got: %s", wsPath)
	}
	if _, err := os.Stat(wsPath); os.IsNotExist(err) {
		t.Errorf("Workspace directory does not exist: %s", wsPath)
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(wsPath); !os.IsNotExist(err) {
		t.Errorf("Workspace directory still exists after cleanup: %s", wsPath)
	}
	if mgr.GetPath() != "" {
		t.Errorf("GetPath() after cleanup = %q", mgr.GetPath())
	}
}

func TestManager_CleanupBeforeCreate(t *testing.T) {
	if err := NewManager(t.TempDir()).Cleanup(); err != nil {
		t.Fatalf("Cleanup() without Create() failed: %v", err)
	}
}

func TestManager_CreatesMissingBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "tmp")
	mgr := NewManager(base)
	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	defer mgr.Cleanup()

	if filepath.Dir(mgr.GetPath()) != base {
		t.Errorf("workspace %s not under %s", mgr.GetPath(), base)
	}
}

func TestManager_DirsAreUnique(t *testing.T) {
	base := t.TempDir()
	a, b := NewManager(base), NewManager(base)
	if err := a.Create(); err != nil {
		t.Fatal(err)
	}
	if err := b.Create(); err != nil {
		t.Fatal(err)
	}
	if a.GetPath() == b.GetPath() {
		t.Fatalf("expected distinct workspaces, both %s", a.GetPath())
	}
}

func TestNewManager_DefaultsToSystemTemp(t *testing.T) {
	mgr := NewManager("")
	if mgr.baseDir != os.TempDir() {
		t.Errorf("baseDir = %s, want %s", mgr.baseDir, os.TempDir())
	}
}
