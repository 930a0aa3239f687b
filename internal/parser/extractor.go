package parser

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"identarr/internal/models"
)

// Extractor derives media identities from file and folder names using the
// ordered pattern rule lists.
type Extractor struct {
	logger *logrus.Logger
}

// NewExtractor creates a pattern extractor.
func NewExtractor(logger *logrus.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses a name into a MediaIdentity. Files are cleaned of
// extensions and release tags first and must yield an episode number;
// directories are matched unmodified and never require one.
func (e *Extractor) Extract(name string, isDirectory bool) (*models.MediaIdentity, error) {
	cleaned := name
	rules := dirTitleRules
	if !isDirectory {
		cleaned = CleanFileName(name)
		rules = fileTitleRules
	}

	title, season, ok := matchTitle(rules, cleaned)
	if !ok {
		return nil, &models.ExtractionError{Name: name, Reason: "no title pattern matched"}
	}

	identity := &models.MediaIdentity{
		Title: title,
		Year:  ExtractYear(cleaned),
	}

	if season == nil {
		season = scanSeason(cleaned)
	}
	if season == nil {
		// Policy: undetermined season means season 1, not a failure.
		e.logger.WithField("name", name).Debug("No season marker found, defaulting to season 1")
		one := 1
		season = &one
	}
	identity.Season = season

	if !isDirectory {
		episode, ok := e.Episode(name)
		if !ok {
			return nil, &models.ExtractionError{Name: name, Reason: "no episode number found"}
		}
		identity.Episode = &episode
	}

	return identity, nil
}

// Episode extracts just the episode number from a file name using the
// ordered episode rule list. Used both during extraction and when
// overlaying an episode onto a parent-folder result.
func (e *Extractor) Episode(name string) (int, bool) {
	cleaned := CleanFileName(name)
	for _, re := range episodeRules {
		m := re.FindStringSubmatch(cleaned)
		if len(m) < 2 {
			continue
		}
		if v, ok := ParseNumeral(m[1]); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}

// matchTitle tries each rule in order and returns the first non-empty
// title, plus a season number when the rule captured one directly.
func matchTitle(rules []*regexp.Regexp, name string) (string, *int, bool) {
	for _, re := range rules {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}

		var title string
		var season *int
		for i, group := range re.SubexpNames() {
			if i == 0 || i >= len(m) || m[i] == "" {
				continue
			}
			switch group {
			case "title":
				title = cleanTitle(m[i])
			case "season":
				if v, ok := ParseNumeral(m[i]); ok {
					season = &v
				}
			}
		}
		if title != "" {
			return title, season, true
		}
	}
	return "", nil, false
}

// cleanTitle normalizes separators, trims stray punctuation and title-cases
// names that arrived fully lowercased.
func cleanTitle(raw string) string {
	title := separatorRegex.ReplaceAllString(raw, " ")
	title = strings.Trim(title, " -[]()")
	if title == "" {
		return ""
	}
	if title == strings.ToLower(title) {
		title = cases.Title(language.Und).String(title)
	}
	return title
}

// scanSeason runs the secondary season rule list over a cleaned name.
func scanSeason(name string) *int {
	for _, re := range seasonRules {
		m := re.FindStringSubmatch(name)
		if len(m) < 2 {
			continue
		}
		if v, ok := ParseNumeral(m[1]); ok && v > 0 {
			return &v
		}
	}
	return nil
}
