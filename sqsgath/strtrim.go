package sqsgath

import "strings"

func trimStrToRect(s string, maxHeight int, maxWidth int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
		lines = append(lines, "...")
	}
	for i, line := range lines {
		if len(line) > maxWidth {
			lines[i] = line[:maxWidth] + "..."
		}
	}
	return strings.Join(lines, "\n")
}
