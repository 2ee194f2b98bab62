package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"git.home.luguber.info/inful/pkgdocs/internal/config"
)

// New opens the backend selected by cfg.Queue.Backend.
func New(ctx context.Context, cfg *config.Config) (Queue, error) {
	qc := cfg.Queue
	switch qc.Backend {
	case config.QueueSQLite:
		return OpenSQLite(ctx, qc.Database, qc.MaxAttempts)
	case config.QueueRedis:
		q, err := NewRedis(&redis.Options{Addr: qc.RedisAddr, Password: qc.RedisPassword, DB: qc.RedisDB}, qc.Namespace, qc.MaxAttempts)
		if err != nil {
			return nil, err
		}
		if err := q.Ping(ctx); err != nil {
			_ = q.Close()
			return nil, fmt.Errorf("redis not reachable at %s: %w", qc.RedisAddr, err)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unsupported queue backend %q", qc.Backend)
	}
}
