// Package sandbox runs shell commands inside the isolated build environment.
//
// Two executors are provided: LXC attaches to a long-lived container through
// sudo lxc-attach and su, Docker uses the exec API of a running container.
// A non-zero exit status is reported through Result.Success; the error return
// is reserved for failures to launch the command at all.
package sandbox

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Command is a shell script executed as the sandbox user.
type Command struct {
	Script string
	Env    map[string]string
}

// Result carries the combined output and exit status of a Command.
type Result struct {
	Output  string
	Success bool
}

// Executor runs commands in the sandbox.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Quote returns s as a single POSIX shell word.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./=:,+@%", r)
}

// Shell renders the command as one script string with the environment
// exported up front in key order.
func (c Command) Shell() string {
	if len(c.Env) == 0 {
		return c.Script
	}
	var b strings.Builder
	for _, k := range c.envKeys() {
		b.WriteString("export ")
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(Quote(c.Env[k]))
		b.WriteString("; ")
	}
	b.WriteString(c.Script)
	return b.String()
}

// EnvList renders the environment as sorted KEY=VALUE pairs.
func (c Command) EnvList() []string {
	out := make([]string, 0, len(c.Env))
	for _, k := range c.envKeys() {
		out = append(out, k+"="+c.Env[k])
	}
	return out
}

func (c Command) envKeys() []string {
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// withTimeout derives the per-command context. The returned func reports
// whether the command ran out of time rather than the parent being cancelled.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc, func() bool) {
	if d <= 0 {
		return ctx, func() {}, func() bool { return false }
	}
	cctx, cancel := context.WithTimeout(ctx, d)
	timedOut := func() bool {
		return ctx.Err() == nil && cctx.Err() == context.DeadlineExceeded
	}
	return cctx, cancel, timedOut
}

const timeoutNote = "\n[pkgdocs] command timed out after "

func timeoutOutput(out string, d time.Duration) string {
	return out + timeoutNote + d.String() + "\n"
}
