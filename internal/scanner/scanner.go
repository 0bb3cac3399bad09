// Package scanner enumerates the source files of a snapshot in a deterministic order.
package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JanSimek/fallout2-modding/internal/paths"
)

// File is one selected source file.
type File struct {
	RelPath string // snapshot-relative path with forward slashes
	AbsPath string
	Ext     string // lowercase extension including dot
}

// Options controls file selection.
type Options struct {
	// Extensions to include, e.g. ".cc"; matched case-insensitively.
	Extensions []string
	// Exclude lists directory names skipped at any depth.
	Exclude []string
}

// Scan walks root and returns matching files sorted by RelPath.
// Hidden directories are always skipped.
func Scan(root string, opts Options) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving scan root: %w", err)
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, e := range opts.Exclude {
		exclude[e] = struct{}{}
	}

	var files []File
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == absRoot {
				return nil
			}
			if paths.IsHidden(d.Name()) {
				return filepath.SkipDir
			}
			if _, skip := exclude[d.Name()]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ok := exts[ext]; !ok {
			return nil
		}

		rel, err := paths.CanonicalizePath(p, absRoot)
		if err != nil {
			return err
		}
		files = append(files, File{
			RelPath: rel,
			AbsPath: p,
			Ext:     ext,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", absRoot, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}
