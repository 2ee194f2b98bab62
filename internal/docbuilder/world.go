package docbuilder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
	"git.home.luguber.info/inful/pkgdocs/internal/storage"
)

// WorldSummary counts the outcomes of a BuildWorld run.
type WorldSummary struct {
	Built   int
	Skipped int
	Failed  int
	Errors  int
}

// BuildWorld builds every package from packages in order. Per-package errors
// are logged and counted; only context cancellation stops the run early.
func (b *Builder) BuildWorld(ctx context.Context, packages iter.Seq[storage.PackageID]) (WorldSummary, error) {
	var sum WorldSummary
	for id := range packages {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		outcome, err := b.BuildPackage(ctx, id.Name, id.Version)
		if err != nil {
			sum.Errors++
			slog.Error("Failed to build package", logfields.Package(id.Name), logfields.Version(id.Version), logfields.Error(err))
			continue
		}
		switch outcome {
		case OutcomeBuilt:
			sum.Built++
		case OutcomeSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}
	slog.Info("Finished building packages",
		slog.Int("built", sum.Built),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
		slog.Int("errors", sum.Errors))
	return sum, nil
}

// ParsePackageList reads "name version" pairs, one per line. Blank lines and
// lines starting with # are ignored; "name@version" and "name=version" are
// accepted too.
func ParsePackageList(r io.Reader) ([]storage.PackageID, error) {
	var out []storage.PackageID
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, ok := parsePackageLine(text)
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"name version\", got %q", line, text)
		}
		out = append(out, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read package list: %w", err)
	}
	return out, nil
}

func parsePackageLine(text string) (storage.PackageID, bool) {
	if fields := strings.Fields(text); len(fields) == 2 {
		return storage.PackageID{Name: fields[0], Version: strings.TrimPrefix(fields[1], "=")}, true
	}
	for _, sep := range []string{"@", "="} {
		if name, ver, ok := strings.Cut(text, sep); ok && name != "" && ver != "" && !strings.ContainsAny(name+ver, " \t") {
			return storage.PackageID{Name: name, Version: ver}, true
		}
	}
	return storage.PackageID{}, false
}
