package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RemoveStale deletes every directory directly under root whose name starts
// with prefix. Plain files are left alone even when their name matches.
// It returns the removed paths.
func RemoveStale(root, prefix string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		p := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(p); err != nil {
			return removed, fmt.Errorf("remove %s: %w", p, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}
