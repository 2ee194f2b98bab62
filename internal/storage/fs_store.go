package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
)

// FSStore is a filesystem-based ObjectStore with a content-addressable layout:
//
//	<base>/
//	  objects/
//	    ab/
//	      cd1234...            (first 2 chars = subdir, rest = filename)
//	      cd1234....meta.json
type FSStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFSStore creates a filesystem object store rooted at basePath.
func NewFSStore(basePath string) (*FSStore, error) {
	dir := filepath.Join(basePath, "objects")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	return &FSStore{basePath: basePath}, nil
}

// HashData returns the content hash used as an object key.
func HashData(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Put stores an object and returns its content hash.
func (fs *FSStore) Put(ctx context.Context, obj *Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		hash = HashData(obj.Data)
	}

	objectPath := fs.objectPath(hash)
	if _, err := os.Stat(objectPath); err == nil {
		metadata, err := fs.readMetadata(hash)
		if err == nil {
			metadata.RefCount++
			metadata.LastAccessed = time.Now()
			if err := fs.writeMetadata(hash, metadata); err != nil {
				return hash, fmt.Errorf("update metadata: %w", err)
			}
		}
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o750); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated object under its hash.
	tmp := objectPath + ".tmp"
	if err := os.WriteFile(tmp, obj.Data, 0o600); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, objectPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit object: %w", err)
	}

	now := time.Now()
	metadata := Metadata{
		CreatedAt:    now,
		LastAccessed: now,
		RefCount:     1,
		Custom:       make(map[string]string, len(obj.Metadata.Custom)+1),
	}
	for k, v := range obj.Metadata.Custom {
		metadata.Custom[k] = v
	}
	metadata.Custom["object_type"] = string(obj.Type)

	if err := fs.writeMetadata(hash, metadata); err != nil {
		return hash, fmt.Errorf("write metadata: %w", err)
	}
	return hash, nil
}

// Get retrieves an object by its content hash.
func (fs *FSStore) Get(ctx context.Context, hash string) (*Object, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	// #nosec G304 - objectPath is internal, constructed from the hash
	data, err := os.ReadFile(fs.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{Hash: hash}
		}
		return nil, fmt.Errorf("read object: %w", err)
	}

	metadata, err := fs.readMetadata(hash)
	if err != nil {
		slog.WarnContext(ctx, "Object metadata missing", slog.String("hash", hash), logfields.Error(err))
		metadata = Metadata{Custom: map[string]string{}}
	}

	return &Object{
		Hash:     hash,
		Type:     ObjectType(metadata.Custom["object_type"]),
		Size:     int64(len(data)),
		Data:     data,
		Metadata: metadata,
	}, nil
}

// Close releases resources.
func (fs *FSStore) Close() error {
	return nil
}

func (fs *FSStore) objectPath(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(fs.basePath, "objects", hash)
	}
	return filepath.Join(fs.basePath, "objects", hash[:2], hash[2:])
}

func (fs *FSStore) metadataPath(hash string) string {
	return fs.objectPath(hash) + ".meta.json"
}

func (fs *FSStore) readMetadata(hash string) (Metadata, error) {
	// #nosec G304 - metadataPath is internal, constructed from the hash
	data, err := os.ReadFile(fs.metadataPath(hash))
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return metadata, nil
}

func (fs *FSStore) writeMetadata(hash string, metadata Metadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(fs.metadataPath(hash), data, 0o600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
