package commands

import (
	"context"
	"fmt"
	"io"

	"git.home.luguber.info/inful/pkgdocs/internal/config"
	"git.home.luguber.info/inful/pkgdocs/internal/queue"
)

// QueueCmd groups queue management commands.
type QueueCmd struct {
	Add     QueueAddCmd     `cmd:"" help:"Add a package version to the queue"`
	Count   QueueCountCmd   `cmd:"" help:"Print the number of pending builds"`
	Lock    QueueLockCmd    `cmd:"" help:"Suspend queue processing"`
	Unlock  QueueUnlockCmd  `cmd:"" help:"Resume queue processing"`
	Pending QueuePendingCmd `cmd:"" help:"List pending builds (sqlite backend)"`
	Failed  QueueFailedCmd  `cmd:"" help:"List builds that exhausted their attempts"`
}

// queueFactory is replaced in tests.
var queueFactory = queue.New

func withQueue(root *CLI, fn func(ctx context.Context, q queue.Queue) error) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	return withConfiguredQueue(context.Background(), cfg, fn)
}

func withConfiguredQueue(ctx context.Context, cfg *config.Config, fn func(ctx context.Context, q queue.Queue) error) error {
	q, err := queueFactory(ctx, cfg)
	if err != nil {
		return err
	}
	defer q.Close()
	return fn(ctx, q)
}

// QueueAddCmd implements 'queue add'.
type QueueAddCmd struct {
	Name     string `arg:"" help:"Package name"`
	Version  string `arg:"" help:"Exact package version"`
	Priority int    `short:"p" help:"Lower values build first" default:"0"`
}

func (c *QueueAddCmd) Run(g *Global, root *CLI) error {
	return withQueue(root, func(ctx context.Context, q queue.Queue) error {
		if err := q.Add(ctx, c.Name, c.Version, c.Priority); err != nil {
			return err
		}
		_, err := fmt.Fprintf(g.out(), "queued %s-%s (priority %d)\n", c.Name, c.Version, c.Priority)
		return err
	})
}

// QueueCountCmd implements 'queue count'.
type QueueCountCmd struct{}

func (c *QueueCountCmd) Run(g *Global, root *CLI) error {
	return withQueue(root, func(ctx context.Context, q queue.Queue) error {
		n, err := q.PendingCount(ctx)
		if err != nil {
			return err
		}
		locked, err := q.IsLocked(ctx)
		if err != nil {
			return err
		}
		state := ""
		if locked {
			state = " (locked)"
		}
		_, err = fmt.Fprintf(g.out(), "%d pending%s\n", n, state)
		return err
	})
}

// QueueLockCmd implements 'queue lock'.
type QueueLockCmd struct{}

func (c *QueueLockCmd) Run(g *Global, root *CLI) error {
	return withQueue(root, func(ctx context.Context, q queue.Queue) error {
		if err := q.Lock(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(g.out(), "queue locked")
		return err
	})
}

// QueueUnlockCmd implements 'queue unlock'.
type QueueUnlockCmd struct{}

func (c *QueueUnlockCmd) Run(g *Global, root *CLI) error {
	return withQueue(root, func(ctx context.Context, q queue.Queue) error {
		if err := q.Unlock(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(g.out(), "queue unlocked")
		return err
	})
}

// QueuePendingCmd implements 'queue pending'.
type QueuePendingCmd struct{}

type pendingLister interface {
	Pending(ctx context.Context) ([]queue.Item, error)
}

func (c *QueuePendingCmd) Run(g *Global, root *CLI) error {
	return withQueue(root, func(ctx context.Context, q queue.Queue) error {
		lister, ok := q.(pendingLister)
		if !ok {
			return fmt.Errorf("queue backend does not support listing")
		}
		items, err := lister.Pending(ctx)
		if err != nil {
			return err
		}
		return printItems(g.out(), items)
	})
}

// QueueFailedCmd implements 'queue failed'.
type QueueFailedCmd struct{}

type failedLister interface {
	Failed(ctx context.Context) ([]queue.Item, error)
}

func (c *QueueFailedCmd) Run(g *Global, root *CLI) error {
	return withQueue(root, func(ctx context.Context, q queue.Queue) error {
		lister, ok := q.(failedLister)
		if !ok {
			return fmt.Errorf("queue backend does not support listing")
		}
		items, err := lister.Failed(ctx)
		if err != nil {
			return err
		}
		return printItems(g.out(), items)
	})
}

func printItems(w io.Writer, items []queue.Item) error {
	for _, it := range items {
		if _, err := fmt.Fprintf(w, "%s %s priority=%d attempts=%d\n", it.Name, it.Version, it.Priority, it.Attempts); err != nil {
			return err
		}
	}
	return nil
}
