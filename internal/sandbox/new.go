package sandbox

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/pkgdocs/internal/config"
)

// New builds the executor selected by cfg.Sandbox.Backend.
func New(ctx context.Context, cfg *config.Config) (Executor, error) {
	timeout := cfg.SandboxTimeout()
	switch cfg.Sandbox.Backend {
	case config.SandboxLXC:
		return NewLXC(cfg.Sandbox.Container, cfg.Sandbox.User, timeout), nil
	case config.SandboxDocker:
		return NewDocker(ctx, cfg.Sandbox.Container, cfg.Sandbox.User, timeout)
	default:
		return nil, fmt.Errorf("unsupported sandbox backend %q", cfg.Sandbox.Backend)
	}
}
