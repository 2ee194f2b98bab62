package docbuilder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/fetcher"
	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
	"git.home.luguber.info/inful/pkgdocs/internal/manifest"
	"git.home.luguber.info/inful/pkgdocs/internal/metrics"
	"git.home.luguber.info/inful/pkgdocs/internal/notify"
	"git.home.luguber.info/inful/pkgdocs/internal/sandbox"
	"git.home.luguber.info/inful/pkgdocs/internal/storage"
	"git.home.luguber.info/inful/pkgdocs/internal/toolchain"
	"git.home.luguber.info/inful/pkgdocs/internal/version"
)

// BuildResult is what one attempt records.
type BuildResult = storage.BuildResult

// Options configures a Builder.
type Options struct {
	// Destination receives <Destination>/<name>/<version> documentation copies.
	Destination string
	// ChrootPath is the host path of the sandbox root filesystem.
	ChrootPath string
	// User is the unprivileged sandbox user whose home holds build directories.
	User string
	// DocTool is the documentation build command inside the sandbox.
	DocTool string
	// Compiler is queried for its version banner.
	Compiler string

	SkipIfLogged bool
	SkipIfExists bool

	Recorder metrics.Recorder
	Notifier notify.Notifier
}

// Builder runs package builds. It is not safe for concurrent BuildPackage calls.
type Builder struct {
	opts      Options
	connector storage.Connector
	sandbox   sandbox.Executor
	fetcher   fetcher.Fetcher
	caches    Caches
	recorder  metrics.Recorder
	notifier  notify.Notifier
}

// New returns a Builder wired to its collaborators.
func New(opts Options, connector storage.Connector, exec sandbox.Executor, fetch fetcher.Fetcher) *Builder {
	if opts.DocTool == "" {
		opts.DocTool = "cratesfyi"
	}
	if opts.Compiler == "" {
		opts.Compiler = "rustc"
	}
	b := &Builder{
		opts:      opts,
		connector: connector,
		sandbox:   exec,
		fetcher:   fetch,
		caches:    Caches{Local: NewLocalCache()},
		recorder:  opts.Recorder,
		notifier:  opts.Notifier,
	}
	if b.recorder == nil {
		b.recorder = metrics.NoopRecorder{}
	}
	if b.notifier == nil {
		b.notifier = notify.Noop{}
	}
	return b
}

// WithDurableCache replaces the release-row lookup used by SkipIfExists.
func (b *Builder) WithDurableCache(c DurableCache) *Builder {
	b.caches.Durable = c
	return b
}

// Caches exposes the skip caches.
func (b *Builder) Caches() *Caches {
	return &b.caches
}

// BuildPackage builds name at exactly version.
func (b *Builder) BuildPackage(ctx context.Context, name, ver string) (Outcome, error) {
	id := storage.PackageID{Name: name, Version: ver}
	log := slog.With(logfields.Package(name), logfields.Version(ver))
	start := time.Now()

	conn, err := b.connector.Connect(ctx)
	if err != nil {
		return OutcomeFailed, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn("Failed to close storage session", logfields.Error(cerr))
		}
	}()

	skip, err := b.shouldSkip(ctx, conn, id)
	if err != nil {
		return OutcomeFailed, err
	}
	if skip {
		log.Info("Skipping package")
		b.recorder.IncBuildOutcome(OutcomeSkipped.String())
		return OutcomeSkipped, nil
	}

	buildID := uuid.NewString()
	log = log.With(logfields.BuildID(buildID))
	log.Info("Building package")

	res, err := b.attempt(ctx, conn, id, buildID, log)

	outcome := OutcomeFailed
	if err == nil && res.Succeeded {
		outcome = OutcomeBuilt
	}
	elapsed := time.Since(start)
	b.recorder.ObserveBuildDuration(elapsed)
	b.recorder.IncBuildOutcome(outcome.String())
	b.publish(ctx, log, id, res, outcome, err)

	if err != nil {
		log.Error("Build attempt aborted", logfields.Error(err), logfields.DurationMS(float64(elapsed.Milliseconds())))
		return OutcomeFailed, err
	}
	log.Info("Build attempt recorded",
		logfields.Outcome(outcome.String()),
		slog.Bool("has_docs", res.HasDocs),
		slog.Any("failed_targets", res.FailedTargets()),
		logfields.DurationMS(float64(elapsed.Milliseconds())))
	return outcome, nil
}

func (b *Builder) shouldSkip(ctx context.Context, conn storage.Conn, id storage.PackageID) (bool, error) {
	if b.opts.SkipIfLogged && b.caches.Local.Contains(id) {
		return true, nil
	}
	if !b.opts.SkipIfExists {
		return false, nil
	}
	durable := b.caches.Durable
	if durable == nil {
		durable = releaseCache{conn: conn}
	}
	return durable.Contains(ctx, id)
}

// attempt fetches the sources, builds and records them, then cleans up. The
// identity is cached only when every step including cleanup succeeded.
func (b *Builder) attempt(ctx context.Context, conn storage.Conn, id storage.PackageID, buildID string, log *slog.Logger) (BuildResult, error) {
	res := BuildResult{BuildID: buildID, OrchestratorVersion: version.String()}

	var srcDir string
	if err := b.stage("fetch", func() error {
		var ferr error
		srcDir, ferr = b.fetcher.Fetch(ctx, id.Name, id.Version)
		return ferr
	}); err != nil {
		return res, err
	}

	err := b.process(ctx, conn, id, srcDir, &res, log)
	if cerr := b.stage("cleanup", func() error { return b.cleanup(context.WithoutCancel(ctx), id, srcDir) }); cerr != nil {
		log.Warn("Cleanup incomplete", logfields.Error(cerr))
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return res, err
	}

	b.caches.Local.Add(id)
	return res, nil
}

// process runs every step between fetch and cleanup.
func (b *Builder) process(ctx context.Context, conn storage.Conn, id storage.PackageID, srcDir string, res *BuildResult, log *slog.Logger) error {
	var err error
	if res.RustcVersion, res.DocsBuilderVersion, err = b.Versions(ctx); err != nil {
		return err
	}

	md, err := manifest.FromCrateRoot(srcDir)
	if err != nil {
		return derrors.ManifestError(id.String(), err)
	}
	plan := md.Plan()
	res.HasExamples = hasExamples(srcDir)

	if err := b.stage("build", func() error { return b.buildTargets(ctx, id, plan, res, log) }); err != nil {
		return err
	}
	res.HasDocs = res.Succeeded && b.haveDocumentation(id)

	if err := b.stage("store_sources", func() error {
		return conn.AddPathTree(ctx, storage.SourcesKey(id), srcDir)
	}); err != nil {
		return err
	}

	if res.HasDocs {
		if err := b.stage("store_docs", func() error { return b.storeDocumentation(ctx, conn, id, res.RustcVersion) }); err != nil {
			if !derrors.IsCategory(err, derrors.CategoryToolchain) {
				return err
			}
			log.Error("Documentation not stored", logfields.Error(err))
			res.HasDocs = false
		}
	}

	return b.stage("record", func() error {
		releaseID, err := conn.AddPackage(ctx, id, *res)
		if err != nil {
			return err
		}
		log.Debug("Release recorded", logfields.ReleaseID(releaseID))
		return conn.AddBuild(ctx, releaseID, *res)
	})
}

// buildTargets invokes the documentation tool for each target, default first.
// Every target is attempted; only the default target decides Succeeded.
func (b *Builder) buildTargets(ctx context.Context, id storage.PackageID, plan manifest.BuildPlan, res *BuildResult, log *slog.Logger) error {
	for i, target := range plan.AllTargets() {
		out, err := b.sandbox.Run(ctx, sandbox.Command{Script: b.docCommand(id, target), Env: plan.Env})
		if err != nil {
			return err
		}
		res.Targets = append(res.Targets, storage.TargetResult{Target: target, Succeeded: out.Success, Output: out.Output})
		b.recorder.IncTargetResult(target, out.Success)
		if i == 0 {
			res.Output = out.Output
			res.Succeeded = out.Success
		}
		if !out.Success {
			log.Warn("Target build failed", logfields.Target(target), slog.Bool("default", i == 0))
		}
	}
	return nil
}

func (b *Builder) docCommand(id storage.PackageID, target string) string {
	return strings.Join([]string{
		b.opts.DocTool, "doc",
		sandbox.Quote(id.Name),
		sandbox.Quote(fetcher.Requirement(id.Version)),
		sandbox.Quote(target),
	}, " ")
}

// Versions returns the compiler and documentation tool banners.
func (b *Builder) Versions(ctx context.Context) (rustc, docTool string, err error) {
	if rustc, err = b.banner(ctx, b.opts.Compiler); err != nil {
		return "", "", err
	}
	if docTool, err = b.banner(ctx, b.opts.DocTool); err != nil {
		return "", "", err
	}
	return rustc, docTool, nil
}

func (b *Builder) banner(ctx context.Context, tool string) (string, error) {
	script := tool + " --version"
	res, err := b.sandbox.Run(ctx, sandbox.Command{Script: script})
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", derrors.SandboxError(script, fmt.Errorf("exit status non-zero: %s", strings.TrimSpace(res.Output)))
	}
	return strings.TrimSpace(res.Output), nil
}

// buildDir is the package's build directory on the host side of the sandbox.
func (b *Builder) buildDir(id storage.PackageID) string {
	return filepath.Join(b.opts.ChrootPath, "home", b.opts.User, id.String())
}

// docDir is where the documentation of the library target is generated.
func (b *Builder) docDir(id storage.PackageID) string {
	return filepath.Join(b.buildDir(id), "doc", libTarget(id.Name))
}

func (b *Builder) destination(id storage.PackageID) string {
	return filepath.Join(b.opts.Destination, id.Name, id.Version)
}

// libTarget is the library target name the documentation directory uses.
func libTarget(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func (b *Builder) haveDocumentation(id storage.PackageID) bool {
	info, err := os.Stat(b.docDir(id))
	return err == nil && info.IsDir()
}

func hasExamples(srcDir string) bool {
	info, err := os.Stat(filepath.Join(srcDir, "examples"))
	return err == nil && info.IsDir()
}

func (b *Builder) storeDocumentation(ctx context.Context, conn storage.Conn, id storage.PackageID, rustc string) error {
	tag, err := toolchain.Tag(rustc)
	if err != nil {
		return derrors.ToolchainError(rustc, err)
	}
	dst := b.destination(id)
	if err := copyDocDir(filepath.Join(b.buildDir(id), "doc"), dst, tag); err != nil {
		return derrors.Wrap(err, derrors.CategoryFileSystem, derrors.SeverityError, "failed to copy documentation").
			WithContext("package", id.String())
	}
	return conn.AddPathTree(ctx, storage.DocsKey(id), dst)
}

// cleanup removes the sandbox build directory, the local documentation copy
// and the extracted sources. Every removal is attempted.
func (b *Builder) cleanup(ctx context.Context, id storage.PackageID, srcDir string) error {
	var errs []error

	script := "rm -rf " + sandbox.Quote(id.String())
	res, err := b.sandbox.Run(ctx, sandbox.Command{Script: script})
	switch {
	case err != nil:
		errs = append(errs, derrors.CleanupError(b.buildDir(id), err))
	case !res.Success:
		errs = append(errs, derrors.CleanupError(b.buildDir(id), fmt.Errorf("%s: %s", script, strings.TrimSpace(res.Output))))
	}
	for _, dir := range []string{b.destination(id), srcDir} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, derrors.CleanupError(dir, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Builder) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	b.recorder.ObserveStageDuration(name, elapsed)
	slog.Debug("Stage finished", logfields.Stage(name), logfields.DurationMS(float64(elapsed.Milliseconds())))
	switch {
	case err == nil:
		b.recorder.IncStageResult(name, metrics.ResultSuccess)
	case errors.Is(err, context.Canceled):
		b.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		b.recorder.IncStageResult(name, metrics.ResultFailed)
	}
	return err
}

func (b *Builder) publish(ctx context.Context, log *slog.Logger, id storage.PackageID, res BuildResult, outcome Outcome, buildErr error) {
	ev := notify.Event{
		BuildID:       res.BuildID,
		Package:       id.Name,
		Version:       id.Version,
		Outcome:       outcome.String(),
		Succeeded:     res.Succeeded,
		HasDocs:       res.HasDocs,
		FailedTargets: res.FailedTargets(),
	}
	if buildErr != nil {
		ev.Error = buildErr.Error()
	}
	if err := b.notifier.Notify(ctx, ev); err != nil {
		log.Warn("Failed to publish build event", logfields.Error(err))
	}
}
