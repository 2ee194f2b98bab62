package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
)

// Redis is a Queue stored in Redis.
//
// Keys, all under pkgdocs:{namespace}:
//
//	pending          ZSET of "<name>/<version>" scored by priority then arrival
//	item:<member>    HASH name, version, priority, attempts
//	failed           SET of members that exhausted their attempts
//	seq              arrival counter
//	locked           lock flag
type Redis struct {
	rdb         *redis.Client
	namespace   string
	maxAttempts int
}

var _ Queue = (*Redis)(nil)

// seqScale keeps arrival order inside one priority band.
const seqScale = 1e9

// NewRedis returns a Redis queue using opts.
func NewRedis(opts *redis.Options, namespace string, maxAttempts int) (*Redis, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &Redis{
		rdb:         redis.NewClient(opts),
		namespace:   namespace,
		maxAttempts: maxAttemptsOrDefault(maxAttempts),
	}, nil
}

func (q *Redis) key(parts ...string) string {
	return "pkgdocs:" + q.namespace + ":" + strings.Join(parts, ":")
}

func member(name, version string) string {
	return name + "/" + version
}

// Ping verifies Redis connectivity.
func (q *Redis) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *Redis) IsLocked(ctx context.Context) (bool, error) {
	n, err := q.rdb.Exists(ctx, q.key("locked")).Result()
	if err != nil {
		return false, derrors.QueueError("is locked", err)
	}
	return n > 0, nil
}

func (q *Redis) Lock(ctx context.Context) error {
	if err := q.rdb.Set(ctx, q.key("locked"), "1", 0).Err(); err != nil {
		return derrors.QueueError("lock", err)
	}
	return nil
}

func (q *Redis) Unlock(ctx context.Context) error {
	if err := q.rdb.Del(ctx, q.key("locked")).Err(); err != nil {
		return derrors.QueueError("unlock", err)
	}
	return nil
}

func (q *Redis) PendingCount(ctx context.Context) (int, error) {
	n, err := q.rdb.ZCard(ctx, q.key("pending")).Result()
	if err != nil {
		return 0, derrors.QueueError("pending count", err)
	}
	return int(n), nil
}

// Add enqueues an item. Re-adding an exhausted item gives it a fresh set of attempts.
func (q *Redis) Add(ctx context.Context, name, version string, priority int) error {
	m := member(name, version)
	seq, err := q.rdb.Incr(ctx, q.key("seq")).Result()
	if err != nil {
		return derrors.QueueError("add", err)
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.key("item", m), "name", name, "version", version, "priority", priority, "attempts", 0)
		pipe.SRem(ctx, q.key("failed"), m)
		pipe.ZAddNX(ctx, q.key("pending"), redis.Z{Score: score(priority, seq), Member: m})
		return nil
	})
	if err != nil {
		return derrors.QueueError("add", err).WithContext("package", name+"-"+version)
	}
	return nil
}

func score(priority int, seq int64) float64 {
	return float64(priority)*seqScale + float64(seq%int64(seqScale))
}

// BuildNextQueued pops the lowest-scored member. ZPOPMIN is atomic, so a member
// another worker already popped is simply not seen here.
func (q *Redis) BuildNextQueued(ctx context.Context, b PackageBuilder) error {
	popped, err := q.rdb.ZPopMin(ctx, q.key("pending"), 1).Result()
	if err != nil {
		return derrors.QueueError("claim", err)
	}
	if len(popped) == 0 {
		return nil
	}
	m, _ := popped[0].Member.(string)

	it, err := q.item(ctx, m)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = q.fail(context.WithoutCancel(ctx), m, it, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	if buildErr := b.BuildPackage(ctx, it.Name, it.Version); buildErr != nil {
		if ferr := q.fail(context.WithoutCancel(ctx), m, it, buildErr); ferr != nil {
			return errors.Join(buildErr, ferr)
		}
		return fmt.Errorf("build %s-%s: %w", it.Name, it.Version, buildErr)
	}

	if err := q.rdb.Del(ctx, q.key("item", m)).Err(); err != nil {
		return derrors.QueueError("remove", err).WithContext("package", m)
	}
	return nil
}

func (q *Redis) item(ctx context.Context, m string) (Item, error) {
	fields, err := q.rdb.HGetAll(ctx, q.key("item", m)).Result()
	if err != nil {
		return Item{}, derrors.QueueError("read item", err).WithContext("package", m)
	}
	it := Item{Name: fields["name"], Version: fields["version"]}
	if it.Name == "" {
		// item hash lost; recover identity from the member itself
		it.Name, it.Version, _ = strings.Cut(m, "/")
	}
	it.Priority, _ = strconv.Atoi(fields["priority"])
	it.Attempts, _ = strconv.Atoi(fields["attempts"])
	return it, nil
}

func (q *Redis) fail(ctx context.Context, m string, it Item, cause error) error {
	attempts, err := q.rdb.HIncrBy(ctx, q.key("item", m), "attempts", 1).Result()
	if err != nil {
		return derrors.QueueError("record failure", err)
	}
	logFailure(ctx, "redis", it, int(attempts), q.maxAttempts, cause)

	if int(attempts) >= q.maxAttempts {
		err = q.rdb.SAdd(ctx, q.key("failed"), m).Err()
	} else {
		var seq int64
		if seq, err = q.rdb.Incr(ctx, q.key("seq")).Result(); err == nil {
			err = q.rdb.ZAdd(ctx, q.key("pending"), redis.Z{Score: score(it.Priority, seq), Member: m}).Err()
		}
	}
	if err != nil {
		return derrors.QueueError("record failure", err)
	}
	return nil
}

// Failed lists items that exhausted their attempts, ordered by member.
func (q *Redis) Failed(ctx context.Context) ([]Item, error) {
	members, err := q.rdb.SMembers(ctx, q.key("failed")).Result()
	if err != nil {
		return nil, derrors.QueueError("list failed", err)
	}
	slices.Sort(members)

	items := make([]Item, 0, len(members))
	for _, m := range members {
		it, err := q.item(ctx, m)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (q *Redis) Close() error {
	return q.rdb.Close()
}
