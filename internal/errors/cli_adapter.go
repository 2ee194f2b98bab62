package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
)

// exitCodes maps categories to process exit codes. Unlisted categories exit 1.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryManifest:   6,
	CategoryConfig:     7,
	CategoryFetch:      8,
	CategoryStorage:    8,
	CategoryQueue:      8,
	CategorySandbox:    8,
	CategoryInternal:   10,
	CategoryBuild:      11,
	CategoryToolchain:  11,
	CategoryFileSystem: 11,
	CategoryRuntime:    12,
}

// subjectKeys are the context keys naming what an error is about, in the
// order the short form looks for them.
var subjectKeys = []string{"package", "field", "path", "operation", "command", "banner"}

// CLIErrorAdapter turns errors into operator output and exit codes.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	stderr  io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, stderr: os.Stderr, exit: os.Exit}
}

// ExitCodeFor determines the exit code for err.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	be, ok := As(err)
	if !ok {
		return 1
	}
	if code, ok := exitCodes[be.Category]; ok {
		return code
	}
	return 1
}

// FormatError renders err for the terminal. The short form names the subject
// of the error (package, path, queue operation...) instead of the cause chain.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	be, ok := As(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return be.Error()
	}

	msg := be.Message
	if be.Category != CategoryConfig && be.Category != CategoryValidation {
		msg = fmt.Sprintf("%s: %s", be.Category, be.Message)
	}
	if subject, ok := subjectOf(be); ok {
		msg += ": " + subject
	}
	if reason, ok := be.Context["reason"]; ok {
		msg += fmt.Sprintf(" (%v)", reason)
	}
	return msg
}

func subjectOf(be *BuildError) (string, bool) {
	for _, k := range subjectKeys {
		if v, ok := be.Context[k]; ok {
			return fmt.Sprint(v), true
		}
	}
	return "", false
}

// HandleError prints err, logs it when warranted and exits.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if a.shouldLog(err) {
		a.logError(err)
	}
	fmt.Fprintln(a.stderr, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

// shouldLog logs everything when verbose, otherwise only faults.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	be, ok := As(err)
	if !ok {
		return true
	}
	return be.Category == CategoryInternal || be.Category == CategoryRuntime || be.Severity == SeverityFatal
}

func (a *CLIErrorAdapter) logError(err error) {
	be, ok := As(err)
	if !ok {
		a.logger.Error("Unclassified error", slog.String("error", err.Error()))
		return
	}

	attrs := []slog.Attr{slog.String("category", string(be.Category))}
	if be.Retryable {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	for _, k := range slices.Sorted(maps.Keys(be.Context)) {
		attrs = append(attrs, slog.Any(k, be.Context[k]))
	}
	if be.Cause != nil {
		attrs = append(attrs, slog.String("error", be.Cause.Error()))
	}
	a.logger.LogAttrs(context.Background(), levelFor(be.Severity), be.Message, attrs...)
}

func levelFor(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
