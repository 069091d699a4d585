package profile

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// LoadWordList reads a frequency-ordered word list, one word per line. Only
// the first maxWords entries are considered; of those, words shorter than
// minLength are skipped.
func LoadWordList(path string, minLength, maxWords int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	words := make([]string, 0, 1024)
	read := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if maxWords > 0 && read >= maxWords {
			break
		}
		read++
		w := strings.ToLower(fields[0])
		if utf8.RuneCountInString(w) < minLength {
			continue
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan word list: %w", err)
	}
	return words, nil
}
