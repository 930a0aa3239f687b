package parser

import (
	"bufio"
	"os"
	"strings"
)

// defaultIgnoreTerms cover names that are never worth a resolution attempt.
var defaultIgnoreTerms = []string{"sample", "trailer"}

// IgnoreList holds terms that disqualify a name from being enqueued.
type IgnoreList struct {
	terms []string
}

// LoadIgnoreList loads ignore terms from a file, one per line, '#' for
// comments. A missing file yields the built-in defaults.
func LoadIgnoreList(path string) (*IgnoreList, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &IgnoreList{terms: defaultIgnoreTerms}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var terms []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term != "" && !strings.HasPrefix(term, "#") {
			terms = append(terms, term)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &IgnoreList{terms: terms}, nil
}

// Matches checks whether a name contains any ignore term.
// Returns (matched, matchedTerm).
func (l *IgnoreList) Matches(name string) (bool, string) {
	nameLower := strings.ToLower(name)

	for _, term := range l.terms {
		if strings.Contains(nameLower, strings.ToLower(term)) {
			return true, term
		}
	}

	return false, ""
}
