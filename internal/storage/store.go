// Package storage persists build artifacts and release bookkeeping.
//
// File contents go to a content-addressed ObjectStore; release, build and
// file index rows go to SQLite. Callers obtain a Conn per build attempt from
// a Connector.
package storage

import (
	"context"
	"time"
)

// ObjectStore provides content-addressable storage for artifact files.
// Objects are stored by their SHA-256 content hash, so identical files
// across releases are kept once.
type ObjectStore interface {
	// Put stores an object and returns its content hash.
	// If the object already exists, it returns the existing hash without writing.
	Put(ctx context.Context, obj *Object) (hash string, err error)

	// Get retrieves an object by its content hash.
	// Returns ErrNotFound if the object doesn't exist.
	Get(ctx context.Context, hash string) (*Object, error)

	Close() error
}

// Object represents a stored artifact with its metadata.
type Object struct {
	Hash     string
	Type     ObjectType
	Size     int64
	Data     []byte
	Metadata Metadata
}

// Metadata stores object metadata.
type Metadata struct {
	CreatedAt    time.Time
	LastAccessed time.Time
	// RefCount counts how many file rows were written for this content.
	RefCount int
	Custom   map[string]string
}

// ObjectType identifies the kind of stored object.
type ObjectType string

const (
	// ObjectTypeSource is a file from an extracted package source tree.
	ObjectTypeSource ObjectType = "source"

	// ObjectTypeDocs is a file from generated documentation.
	ObjectTypeDocs ObjectType = "docs"

	// ObjectTypeFile is any other stored file.
	ObjectTypeFile ObjectType = "file"
)

// ErrNotFound is returned when an object doesn't exist.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Hash
}

// IsNotFound returns true if the error is ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}
