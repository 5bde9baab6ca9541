package raster

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ListRasters returns the sorted names of regular files in dir ending in
// ".tif" or ".tiff". Matching is case-sensitive.
func ListRasters(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDirUnreadable, dir, err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".tif") || strings.HasSuffix(name, ".tiff") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
