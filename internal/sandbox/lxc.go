package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
)

// waitDelay bounds how long output pipes are drained after the process is killed.
const waitDelay = 2 * time.Second

// LXC runs commands in an LXC container as an unprivileged user:
//
//	sudo lxc-attach -n <container> -- su - <user> -c <script>
type LXC struct {
	Container string
	User      string
	Timeout   time.Duration

	// newCommand is exec.CommandContext; tests replace it.
	newCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewLXC returns an LXC executor for container and user.
func NewLXC(container, user string, timeout time.Duration) *LXC {
	return &LXC{Container: container, User: user, Timeout: timeout, newCommand: exec.CommandContext}
}

// Argv returns the full host command line used for cmd.
func (l *LXC) Argv(cmd Command) []string {
	return []string{"sudo", "lxc-attach", "-n", l.Container, "--", "su", "-", l.User, "-c", cmd.Shell()}
}

// Run executes cmd and returns its combined output.
func (l *LXC) Run(ctx context.Context, cmd Command) (Result, error) {
	ctx, cancel, timedOut := withTimeout(ctx, l.Timeout)
	defer cancel()

	newCommand := l.newCommand
	if newCommand == nil {
		newCommand = exec.CommandContext
	}
	argv := l.Argv(cmd)
	slog.Debug("Sandbox exec", logfields.Backend("lxc"), logfields.Container(l.Container), logfields.Script(cmd.Script))

	c := newCommand(ctx, argv[0], argv[1:]...)
	c.WaitDelay = waitDelay
	out, err := c.CombinedOutput()
	if err == nil {
		return Result{Output: string(out), Success: true}, nil
	}
	if timedOut() {
		return Result{Output: timeoutOutput(string(out), l.Timeout)}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return Result{Output: string(out)}, nil
	}
	return Result{Output: string(out)}, derrors.SandboxError(cmd.Script, err)
}
