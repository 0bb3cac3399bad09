package extract

// Extent returns the 1-based end line of the block starting at lines[start].
// It counts '{' and '}' characters from the start line; the first line on which
// the count returns to zero after having been positive closes the block. Braces
// inside string literals and comments are counted like any other. When no
// balancing close exists, the end is start+1+fallback clamped to the file.
func Extent(lines []string, start, fallback int) int {
	depth := 0
	opened := false

	for i := start; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				if !opened {
					continue
				}
				depth--
				if depth == 0 {
					return i + 1
				}
			}
		}
	}

	end := start + 1 + fallback
	if end > len(lines) {
		end = len(lines)
	}
	if end < start+1 {
		end = start + 1
	}
	return end
}
