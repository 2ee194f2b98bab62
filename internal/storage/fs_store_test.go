package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFSStorePutAndGet(t *testing.T) {
	store := newTestFSStore(t)
	ctx := t.Context()

	data := []byte("pub fn parse() {}\n")
	hash, err := store.Put(ctx, &Object{
		Type:     ObjectTypeSource,
		Data:     data,
		Metadata: Metadata{Custom: map[string]string{"path": "src/lib.rs"}},
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if hash != HashData(data) {
		t.Fatalf("hash = %s, want content hash", hash)
	}
	if _, err := os.Stat(store.objectPath(hash)); err != nil {
		t.Fatalf("object file not created: %v", err)
	}

	got, err := store.Get(ctx, hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != string(data) {
		t.Errorf("got data %q, want %q", got.Data, data)
	}
	if got.Type != ObjectTypeSource {
		t.Errorf("got type %v, want %v", got.Type, ObjectTypeSource)
	}
	if got.Metadata.Custom["path"] != "src/lib.rs" {
		t.Errorf("custom metadata lost: %v", got.Metadata.Custom)
	}
}

func TestFSStoreDeduplication(t *testing.T) {
	store := newTestFSStore(t)
	ctx := t.Context()

	obj := &Object{Type: ObjectTypeDocs, Data: []byte("<html></html>")}
	h1, err := store.Put(ctx, obj)
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	h2, err := store.Put(ctx, obj)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical hashes, got %s and %s", h1, h2)
	}
	got, err := store.Get(ctx, h1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Metadata.RefCount != 2 {
		t.Fatalf("RefCount = %d, want 2", got.Metadata.RefCount)
	}
}

func TestFSStoreObjectPath(t *testing.T) {
	store := &FSStore{basePath: "/base"}
	got := store.objectPath("abcdef")
	want := filepath.Join("/base", "objects", "ab", "cdef")
	if got != want {
		t.Fatalf("objectPath = %s, want %s", got, want)
	}
}

func TestFSStoreGetNotFound(t *testing.T) {
	store := newTestFSStore(t)
	if _, err := store.Get(t.Context(), "deadbeef"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
