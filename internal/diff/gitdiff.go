package diff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// Parse parses a unified multi-file git diff.
func Parse(diffContent string) ([]ChangedFile, error) {
	if strings.TrimSpace(diffContent) == "" {
		return []ChangedFile{}, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	files := make([]ChangedFile, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		files = append(files, parseFileDiff(fd))
	}
	return files, nil
}

func parseFileDiff(fd *godiff.FileDiff) ChangedFile {
	cf := ChangedFile{
		OldPath: cleanPath(fd.OrigName),
		NewPath: cleanPath(fd.NewName),
		Hunks:   make([]Hunk, 0, len(fd.Hunks)),
	}

	if fd.OrigName == "/dev/null" || fd.OrigName == "" {
		cf.IsNew = true
		cf.OldPath = ""
	}
	if fd.NewName == "/dev/null" || fd.NewName == "" {
		cf.Deleted = true
		cf.NewPath = ""
	}
	if cf.OldPath != "" && cf.NewPath != "" && cf.OldPath != cf.NewPath {
		cf.Renamed = true
	}

	for _, h := range fd.Hunks {
		cf.Hunks = append(cf.Hunks, parseHunk(h))
	}
	return cf
}

func parseHunk(h *godiff.Hunk) Hunk {
	out := Hunk{
		OldStart: int(h.OrigStartLine),
		OldLines: int(h.OrigLines),
		NewStart: int(h.NewStartLine),
		NewLines: int(h.NewLines),
		Added:    []int{},
		Removed:  []int{},
	}

	oldLine := int(h.OrigStartLine)
	newLine := int(h.NewStartLine)

	body := strings.TrimSuffix(string(h.Body), "\n")
	if body == "" {
		return out
	}
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			// blank context line with its leading space stripped
			oldLine++
			newLine++
			continue
		}
		switch line[0] {
		case '+':
			out.Added = append(out.Added, newLine)
			newLine++
		case '-':
			out.Removed = append(out.Removed, oldLine)
			oldLine++
		case ' ':
			oldLine++
			newLine++
		case '\\':
			// "\ No newline at end of file"
		}
	}
	return out
}

// cleanPath removes the a/ or b/ prefix from git diff paths
func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}
