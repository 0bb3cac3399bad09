package extract

import "strings"

// CommentAlias looks at most max lines above lines[idx] for an annotation naming
// an identifier, e.g. "// self_obj". Blank lines and other comments (such as
// "// 0x4541D0" address hints) are skipped; the first code line ends the search.
// The nearest annotation wins.
func CommentAlias(lines []string, idx, max int) string {
	for j := idx - 1; j >= 0 && idx-j <= max; j-- {
		text, isComment := commentText(lines[j])
		if !isComment {
			if strings.TrimSpace(lines[j]) == "" {
				continue
			}
			return ""
		}
		if IsIdentifier(text) {
			return text
		}
	}
	return ""
}

// commentText returns the body of a line that holds only a comment.
func commentText(line string) (string, bool) {
	t := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(t, "//"):
		return strings.TrimSpace(strings.TrimLeft(t, "/")), true
	case strings.HasPrefix(t, "/*") && strings.HasSuffix(t, "*/") && len(t) >= 4:
		return strings.TrimSpace(t[2 : len(t)-2]), true
	}
	return "", false
}
