package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
)

// Conn is one storage session, opened per build attempt.
type Conn interface {
	// AddPackage records (or refreshes) the release row and returns its id.
	AddPackage(ctx context.Context, id PackageID, result BuildResult) (int64, error)
	// AddBuild appends a build row to the release.
	AddBuild(ctx context.Context, releaseID int64, result BuildResult) error
	// AddPathTree stores every regular file under dir beneath prefix.
	AddPathTree(ctx context.Context, prefix, dir string) error
	// ReleaseExists reports whether a release row exists for id.
	ReleaseExists(ctx context.Context, id PackageID) (bool, error)
	Close() error
}

// Connector opens storage sessions.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// StoredFile is one row of the file index.
type StoredFile struct {
	Path string
	Hash string
	Size int64
	MIME string
}

// Store combines the records database with the object store.
type Store struct {
	db      *sql.DB
	objects ObjectStore
}

// Open opens (or creates) the records database at dbPath backed by objects.
func Open(ctx context.Context, dbPath string, objects ObjectStore) (*Store, error) {
	db, err := OpenSQLite(ctx, dbPath, recordsSchema)
	if err != nil {
		return nil, derrors.StorageError("open", err)
	}
	return &Store{db: db, objects: objects}, nil
}

// Connect reserves a dedicated database connection for one build attempt.
func (s *Store) Connect(ctx context.Context) (Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, derrors.StorageError("connect", err)
	}
	return &session{conn: conn, objects: s.objects}, nil
}

// ReleaseExists reports whether id has a release row, without a session.
func (s *Store) ReleaseExists(ctx context.Context, id PackageID) (bool, error) {
	return releaseExists(ctx, s.db, id)
}

// Files lists the indexed files under prefix in path order.
func (s *Store) Files(ctx context.Context, prefix string) ([]StoredFile, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, hash, size, mime FROM files WHERE prefix = ? ORDER BY path", normalizePrefix(prefix))
	if err != nil {
		return nil, derrors.StorageError("list files", err)
	}
	defer rows.Close()

	var out []StoredFile
	for rows.Next() {
		var f StoredFile
		if err := rows.Scan(&f.Path, &f.Hash, &f.Size, &f.MIME); err != nil {
			return nil, derrors.StorageError("scan file", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Builds returns the number of build rows recorded for id.
func (s *Store) Builds(ctx context.Context, id PackageID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM builds b JOIN releases r ON r.id = b.release_id
		WHERE r.name = ? AND r.version = ?`, id.Name, id.Version).Scan(&n)
	if err != nil {
		return 0, derrors.StorageError("count builds", err)
	}
	return n, nil
}

// ErrFileNotFound is returned by ReadFile for a path with no file row.
var ErrFileNotFound = errors.New("file not found")

// ReadFile returns the index row and contents of the stored file at filePath.
func (s *Store) ReadFile(ctx context.Context, filePath string) (StoredFile, []byte, error) {
	f := StoredFile{Path: filePath}
	err := s.db.QueryRowContext(ctx,
		"SELECT hash, size, mime FROM files WHERE path = ?", filePath).Scan(&f.Hash, &f.Size, &f.MIME)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return f, nil, derrors.StorageError("read file", ErrFileNotFound).WithContext("path", filePath)
	case err != nil:
		return f, nil, derrors.StorageError("read file", err).WithContext("path", filePath)
	}

	obj, err := s.objects.Get(ctx, f.Hash)
	if err != nil {
		return f, nil, derrors.StorageError("read file", err).WithContext("path", filePath)
	}
	return f, obj.Data, nil
}

// Close closes the database and the object store.
func (s *Store) Close() error {
	return errors.Join(s.db.Close(), s.objects.Close())
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func releaseExists(ctx context.Context, q queryer, id PackageID) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM releases WHERE name = ? AND version = ?", id.Name, id.Version).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, derrors.StorageError("release exists", err)
	}
	return true, nil
}

type session struct {
	conn    *sql.Conn
	objects ObjectStore
}

func (s *session) ReleaseExists(ctx context.Context, id PackageID) (bool, error) {
	return releaseExists(ctx, s.conn, id)
}

func (s *session) AddPackage(ctx context.Context, id PackageID, result BuildResult) (int64, error) {
	now := time.Now().Unix()
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO releases (name, version, build_status, has_docs, has_examples, rustc_version, docsbuilder_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, version) DO UPDATE SET
			build_status = excluded.build_status,
			has_docs = excluded.has_docs,
			has_examples = excluded.has_examples,
			rustc_version = excluded.rustc_version,
			docsbuilder_version = excluded.docsbuilder_version,
			updated_at = excluded.updated_at`,
		id.Name, id.Version, result.Succeeded, result.HasDocs, result.HasExamples,
		result.RustcVersion, result.DocsBuilderVersion, now)
	if err != nil {
		return 0, derrors.StorageError("add package", err).WithContext("package", id.String())
	}

	var releaseID int64
	if err := s.conn.QueryRowContext(ctx,
		"SELECT id FROM releases WHERE name = ? AND version = ?", id.Name, id.Version).Scan(&releaseID); err != nil {
		return 0, derrors.StorageError("add package", err).WithContext("package", id.String())
	}
	return releaseID, nil
}

func (s *session) AddBuild(ctx context.Context, releaseID int64, result BuildResult) error {
	targets, err := json.Marshal(result.Targets)
	if err != nil {
		return fmt.Errorf("marshal targets: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO builds (release_id, build_id, build_status, rustc_version, docsbuilder_version, orchestrator_version, output, targets, built_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		releaseID, result.BuildID, result.Succeeded, result.RustcVersion, result.DocsBuilderVersion,
		result.OrchestratorVersion, result.Output, string(targets), time.Now().Unix())
	if err != nil {
		return derrors.StorageError("add build", err).WithContext("release_id", releaseID)
	}
	return nil
}

func (s *session) AddPathTree(ctx context.Context, prefix, dir string) error {
	prefix = normalizePrefix(prefix)
	objectType := objectTypeFor(prefix)

	info, err := os.Stat(dir)
	if err != nil {
		return derrors.StorageError("add path tree", err).WithContext("prefix", prefix)
	}
	if !info.IsDir() {
		return derrors.StorageError("add path tree", fmt.Errorf("%s is not a directory", dir)).WithContext("prefix", prefix)
	}

	count := 0
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		// #nosec G304 - p is produced by walking dir
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		key := prefix + filepath.ToSlash(rel)
		hash, err := s.objects.Put(ctx, &Object{
			Type:     objectType,
			Data:     data,
			Metadata: Metadata{Custom: map[string]string{"path": key}},
		})
		if err != nil {
			return err
		}
		_, err = s.conn.ExecContext(ctx, `
			INSERT INTO files (path, prefix, hash, size, mime, updated_at) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, size = excluded.size, mime = excluded.mime, updated_at = excluded.updated_at`,
			key, prefix, hash, len(data), mimeFor(rel), time.Now().Unix())
		if err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return derrors.StorageError("add path tree", err).WithContext("prefix", prefix)
	}
	slog.DebugContext(ctx, "Stored path tree", logfields.Prefix(prefix), slog.Int("files", count))
	return nil
}

func (s *session) Close() error {
	return s.conn.Close()
}

// normalizePrefix guarantees exactly one trailing slash.
func normalizePrefix(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/"
}

func objectTypeFor(prefix string) ObjectType {
	switch {
	case strings.HasPrefix(prefix, SourcesPrefix):
		return ObjectTypeSource
	case strings.HasPrefix(prefix, DocsPrefix):
		return ObjectTypeDocs
	default:
		return ObjectTypeFile
	}
}

// sourceTypes override the system table, which maps some source extensions
// (.rs among them) to unrelated types.
var sourceTypes = map[string]string{
	".rs":   "text/rust",
	".toml": "text/toml",
	".md":   "text/markdown",
	".lock": "text/plain",
}

func mimeFor(name string) string {
	ext := path.Ext(filepath.ToSlash(name))
	if t, ok := sourceTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "text/plain"
}

const (
	// SourcesPrefix roots persisted package sources.
	SourcesPrefix = "sources/"
	// DocsPrefix roots persisted documentation.
	DocsPrefix = "rustdoc/"
)

// SourcesKey returns the storage prefix for id's source tree.
func SourcesKey(id PackageID) string { return SourcesPrefix + id.Path() + "/" }

// DocsKey returns the storage prefix for id's documentation tree.
func DocsKey(id PackageID) string { return DocsPrefix + id.Path() + "/" }
