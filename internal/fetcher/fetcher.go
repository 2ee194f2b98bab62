// Package fetcher downloads exact package versions from the registry and
// extracts them into the local sources directory.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
	"git.home.luguber.info/inful/pkgdocs/internal/retry"
	"git.home.luguber.info/inful/pkgdocs/internal/workspace"
)

// Fetcher retrieves the source tree of an exact package version.
type Fetcher interface {
	// Fetch returns the local directory holding the extracted sources.
	Fetch(ctx context.Context, name, version string) (string, error)
}

// maxArchiveSize bounds a single downloaded archive.
const maxArchiveSize = 512 << 20

// Registry fetches .crate archives over HTTP.
type Registry struct {
	// BaseURL is the download root, e.g. https://static.crates.io/crates.
	BaseURL string
	// Dest receives <Dest>/<name>/<version>.
	Dest string
	// TempRoot holds the scratch workspace archives are downloaded into.
	// Empty means the system temporary directory.
	TempRoot string
	Client   *http.Client
	Policy   retry.Policy
}

// NewRegistry returns a registry fetcher with a bounded HTTP client.
func NewRegistry(baseURL, dest string, policy retry.Policy) *Registry {
	return &Registry{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Dest:    dest,
		Client:  &http.Client{Timeout: 5 * time.Minute},
		Policy:  policy,
	}
}

// Requirement renders the exact-version requirement for version.
func Requirement(version string) string {
	return "=" + version
}

// ArchiveURL returns the download location of name at exactly version.
func (r *Registry) ArchiveURL(name, version string) string {
	return fmt.Sprintf("%s/%s/%s-%s.crate", r.BaseURL, url.PathEscape(name), url.PathEscape(name), url.PathEscape(version))
}

// SourceDir returns where Fetch extracts name at version.
func (r *Registry) SourceDir(name, version string) string {
	return filepath.Join(r.Dest, name, version)
}

// Fetch downloads and extracts name at exactly version, replacing any
// previous extraction.
func (r *Registry) Fetch(ctx context.Context, name, version string) (string, error) {
	dir := r.SourceDir(name, version)
	log := slog.With(logfields.Package(name), logfields.Version(Requirement(version)))

	err := retry.Do(ctx, r.Policy, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			log.Warn("Retrying package download", logfields.Attempt(attempt))
		}
		return r.download(ctx, name, version, dir)
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	log.Debug("Fetched package", logfields.Path(dir))
	return dir, nil
}

func (r *Registry) download(ctx context.Context, name, version, dir string) error {
	id := name + "-" + version
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.ArchiveURL(name, version), nil)
	if err != nil {
		return derrors.Wrap(err, derrors.CategoryFetch, derrors.SeverityError, "invalid download request").
			WithContext("package", id)
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return derrors.FetchError(id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return derrors.FetchError(id, fmt.Errorf("registry returned %s", resp.Status))
	default:
		return derrors.New(derrors.CategoryFetch, derrors.SeverityError, "package version not available").
			WithContext("package", id).
			WithContext("status", resp.StatusCode)
	}

	ws := workspace.NewManager(r.TempRoot)
	if err := ws.Create(); err != nil {
		return derrors.Wrap(err, derrors.CategoryFileSystem, derrors.SeverityError, "failed to create download workspace")
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to remove download workspace", logfields.Path(ws.GetPath()), logfields.Error(err))
		}
	}()

	archive := filepath.Join(ws.GetPath(), id+".crate")
	if err := saveArchive(resp.Body, archive); err != nil {
		return derrors.FetchError(id, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return derrors.CleanupError(dir, err)
	}
	// #nosec G304 - archive is inside the download workspace
	f, err := os.Open(archive)
	if err != nil {
		return derrors.FetchError(id, err)
	}
	defer f.Close()
	if err := Extract(f, dir, id+"/"); err != nil {
		return derrors.FetchError(id, err)
	}
	return nil
}

// saveArchive writes at most maxArchiveSize bytes of body to path.
func saveArchive(body io.Reader, path string) error {
	// #nosec G304 - path is inside the download workspace
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(body, maxArchiveSize+1))
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("download archive: %w", err)
	}
	if n > maxArchiveSize {
		_ = out.Close()
		return fmt.Errorf("archive exceeds %d bytes", maxArchiveSize)
	}
	return out.Close()
}
