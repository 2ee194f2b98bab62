package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/storage"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	attempts INTEGER NOT NULL DEFAULT 0,
	claimed_at INTEGER,
	enqueued_at INTEGER NOT NULL,
	UNIQUE(name, version)
);
CREATE INDEX IF NOT EXISTS idx_queue_order ON queue(priority, id);
CREATE TABLE IF NOT EXISTS settings (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const lockSetting = "queue_locked"

// DefaultClaimTimeout releases claims left behind by a worker that died mid-build.
const DefaultClaimTimeout = 3 * time.Hour

// SQLite is a Queue stored in a SQLite database.
type SQLite struct {
	db           *sql.DB
	maxAttempts  int
	claimTimeout time.Duration
	now          func() time.Time
}

var _ Queue = (*SQLite)(nil)

// OpenSQLite opens (or creates) the queue tables in the database at path.
func OpenSQLite(ctx context.Context, path string, maxAttempts int) (*SQLite, error) {
	db, err := storage.OpenSQLite(ctx, path, sqliteSchema)
	if err != nil {
		return nil, derrors.QueueError("open", err)
	}
	return &SQLite{
		db:           db,
		maxAttempts:  maxAttemptsOrDefault(maxAttempts),
		claimTimeout: DefaultClaimTimeout,
		now:          time.Now,
	}, nil
}

// pendingWhere selects rows eligible for a build at the bound time parameters.
const pendingWhere = `attempts < ? AND (claimed_at IS NULL OR claimed_at < ?)`

func (q *SQLite) staleBefore() int64 {
	return q.now().Add(-q.claimTimeout).Unix()
}

func (q *SQLite) IsLocked(ctx context.Context) (bool, error) {
	var value string
	err := q.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE name = ?", lockSetting).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, derrors.QueueError("is locked", err)
	}
	return value == "1", nil
}

func (q *SQLite) Lock(ctx context.Context) error {
	return q.setLock(ctx, "1")
}

func (q *SQLite) Unlock(ctx context.Context) error {
	return q.setLock(ctx, "0")
}

func (q *SQLite) setLock(ctx context.Context, value string) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO settings (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value",
		lockSetting, value)
	if err != nil {
		return derrors.QueueError("set lock", err)
	}
	return nil
}

func (q *SQLite) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue WHERE "+pendingWhere, q.maxAttempts, q.staleBefore()).Scan(&n)
	if err != nil {
		return 0, derrors.QueueError("pending count", err)
	}
	return n, nil
}

// Add enqueues an item. Re-adding a queued item keeps the better priority
// and gives an exhausted item a fresh set of attempts.
func (q *SQLite) Add(ctx context.Context, name, version string, priority int) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO queue (name, version, priority, enqueued_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name, version) DO UPDATE SET
			priority = MIN(queue.priority, excluded.priority),
			attempts = CASE WHEN queue.attempts >= ? THEN 0 ELSE queue.attempts END`,
		name, version, priority, q.now().Unix(), q.maxAttempts)
	if err != nil {
		return derrors.QueueError("add", err).WithContext("package", name+"-"+version)
	}
	return nil
}

// Pending lists pending items in build order.
func (q *SQLite) Pending(ctx context.Context) ([]Item, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT name, version, priority, attempts FROM queue WHERE "+pendingWhere+" ORDER BY priority, id",
		q.maxAttempts, q.staleBefore())
	if err != nil {
		return nil, derrors.QueueError("list pending", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Name, &it.Version, &it.Priority, &it.Attempts); err != nil {
			return nil, derrors.QueueError("scan pending", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Failed lists items that exhausted their attempts, oldest first.
func (q *SQLite) Failed(ctx context.Context) ([]Item, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT name, version, priority, attempts FROM queue WHERE attempts >= ? ORDER BY id", q.maxAttempts)
	if err != nil {
		return nil, derrors.QueueError("list failed", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Name, &it.Version, &it.Priority, &it.Attempts); err != nil {
			return nil, derrors.QueueError("scan failed", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// claim marks the next pending row as taken in one statement, so two workers
// can never claim the same row.
func (q *SQLite) claim(ctx context.Context) (int64, Item, bool, error) {
	var (
		id int64
		it Item
	)
	err := q.db.QueryRowContext(ctx, `
		UPDATE queue SET claimed_at = ?
		WHERE id = (SELECT id FROM queue WHERE `+pendingWhere+` ORDER BY priority, id LIMIT 1)
		RETURNING id, name, version, priority, attempts`,
		q.now().Unix(), q.maxAttempts, q.staleBefore()).Scan(&id, &it.Name, &it.Version, &it.Priority, &it.Attempts)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, Item{}, false, nil
	case err != nil:
		return 0, Item{}, false, derrors.QueueError("claim", err)
	}
	return id, it, true, nil
}

func (q *SQLite) BuildNextQueued(ctx context.Context, b PackageBuilder) error {
	id, it, ok, err := q.claim(ctx)
	if err != nil || !ok {
		return err
	}

	// A panicking build still counts as a failed attempt before the panic moves on.
	defer func() {
		if r := recover(); r != nil {
			_ = q.fail(context.WithoutCancel(ctx), id, it, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	if buildErr := b.BuildPackage(ctx, it.Name, it.Version); buildErr != nil {
		if ferr := q.fail(context.WithoutCancel(ctx), id, it, buildErr); ferr != nil {
			return errors.Join(buildErr, ferr)
		}
		return fmt.Errorf("build %s-%s: %w", it.Name, it.Version, buildErr)
	}

	if _, err := q.db.ExecContext(ctx, "DELETE FROM queue WHERE id = ?", id); err != nil {
		return derrors.QueueError("remove", err).WithContext("package", it.Name+"-"+it.Version)
	}
	return nil
}

func (q *SQLite) fail(ctx context.Context, id int64, it Item, cause error) error {
	attempts := it.Attempts + 1
	logFailure(ctx, "sqlite", it, attempts, q.maxAttempts, cause)
	if _, err := q.db.ExecContext(ctx,
		"UPDATE queue SET attempts = ?, claimed_at = NULL WHERE id = ?", attempts, id); err != nil {
		return derrors.QueueError("record failure", err)
	}
	return nil
}

func (q *SQLite) Close() error {
	return q.db.Close()
}
