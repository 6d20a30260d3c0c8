package textutils

import "strings"

// IndentString prepends indent nIndent times to each line in s,
// except for lines consisting only of whitespace, which are emptied.
func IndentString(s string, indent string, nIndent int) string {
	prefix := strings.Repeat(indent, nIndent)
	lines := strings.SplitAfter(s, "\n")
	var res strings.Builder
	res.Grow(len(s) + len(lines)*len(prefix))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if strings.TrimSpace(line) == "" {
			if strings.HasSuffix(line, "\n") {
				res.WriteByte('\n')
			}
			continue
		}
		res.WriteString(prefix)
		res.WriteString(line)
	}
	return res.String()
}

// FirstLine returns s up to (excluding) its first newline.
func FirstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
