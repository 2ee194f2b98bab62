package fetcher

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var (
	// ErrUnsafePath is returned for archive entries that would escape the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// ErrExtractedTooLarge is returned once the unpacked files exceed the extraction cap.
	ErrExtractedTooLarge = errors.New("archive expands beyond size limit")
)

// maxExtractedSize bounds the total unpacked size of one archive.
const maxExtractedSize = 2 << 30

// Extract unpacks a gzip-compressed tarball into dest, stripping strip from
// every entry name. Entries outside strip are ignored.
func Extract(r io.Reader, dest, strip string) error {
	return extract(r, dest, strip, maxExtractedSize)
}

func extract(r io.Reader, dest, strip string, limit int64) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		name := strings.TrimPrefix(filepath.ToSlash(hdr.Name), "./")
		if !strings.HasPrefix(name, strip) {
			continue
		}
		rel := strings.TrimPrefix(name, strip)
		if rel == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if !within(dest, target) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
		case tar.TypeReg:
			if hdr.Size < 0 || hdr.Size > limit {
				return fmt.Errorf("%w: %s", ErrExtractedTooLarge, hdr.Name)
			}
			limit -= hdr.Size
			if err := writeFile(target, io.LimitReader(tr, hdr.Size), hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			// links and devices are not part of package sources
		}
	}
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	// #nosec G304 - target is checked against the destination root
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return err
	}
	// #nosec G110 - r is limited to the entry size, which is charged against the extraction cap
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
