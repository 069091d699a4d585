package usecase

import "strings"

const defaultMaxContextPairs = 6

// TrimConversationContext keeps the trailing 2*maxPairs non-empty lines of a
// newline-delimited transcript. ok is false for an empty or blank transcript.
func TrimConversationContext(raw string, maxPairs int) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	if maxPairs <= 0 {
		maxPairs = defaultMaxContextPairs
	}

	lines := make([]string, 0, 2*maxPairs)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	keep := 2 * maxPairs
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, "\n"), true
}
