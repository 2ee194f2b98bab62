package docbuilder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// sharedAssets are toolchain-wide static files served once for every package.
var sharedAssets = []string{".lock", ".txt", ".woff", ".woff2", "jquery.js", "playpen.js"}

// versionedAssets differ between toolchains and are kept per package, renamed
// with the toolchain tag so releases built by different toolchains coexist.
var versionedAssets = map[string]bool{
	"rustdoc.css":   true,
	"main.css":      true,
	"main.js":       true,
	"storage.js":    true,
	"normalize.css": true,
}

// copyDocDir copies generated documentation from src into dst. Top-level
// shared assets are skipped and versioned assets are renamed with tag.
func copyDocDir(src, dst, tag string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read documentation dir: %w", err)
	}
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	for _, e := range entries {
		name := e.Name()
		from := filepath.Join(src, name)
		switch {
		case e.IsDir():
			if err := copyTree(from, filepath.Join(dst, name)); err != nil {
				return err
			}
		case versionedAssets[name]:
			ext := filepath.Ext(name)
			tagged := strings.TrimSuffix(name, ext) + "-" + tag + ext
			if err := copyFile(from, filepath.Join(dst, tagged)); err != nil {
				return err
			}
		case isSharedAsset(name):
			// served globally
		default:
			if err := copyFile(from, filepath.Join(dst, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func isSharedAsset(name string) bool {
	for _, suffix := range sharedAssets {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return strings.HasSuffix(name, ".css")
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	// #nosec G304 - src is inside the sandbox build directory
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	// #nosec G304 - dst is under the configured destination
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
