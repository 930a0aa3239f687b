package parser

import (
	"regexp"
	"strings"
)

const cjkNumerals = `0-9一二两三四五六七八九十百千`

// Pre-compiled pattern lists. Rules are tried strictly in order and the
// first structural match wins, so the ordering below is part of the
// observable contract.
var (
	extensionRegex = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|ts|m2ts|mov|wmv|flv|webm|iso|rmvb|strm)$`)

	// Release tags stripped from file names before title matching.
	releaseTagRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{3,4}[pi]\b`),
		regexp.MustCompile(`(?i)\b(4K|UHD|HDR10\+?|HDR|DoVi|DV|SDR)\b`),
		regexp.MustCompile(`(?i)\b(BluRay|Blu-ray|BDRip|BRRip|REMUX|WEB-?DL|WEBRip|HDTV|DVDRip)\b`),
		regexp.MustCompile(`(?i)\b([xh]\.?26[45]|HEVC|AVC|AV1|XviD)\b`),
		regexp.MustCompile(`(?i)\b(DTS(-HD)?(\s?MA)?|TrueHD|Atmos|E?AC3|DDP?|AAC|FLAC|OPUS)(\s?[257]\.[01])?\b`),
		regexp.MustCompile(`-[A-Za-z0-9@]+$`), // trailing release group
	}

	yearRegex = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

	separatorRegex = regexp.MustCompile(`[.\s_]+`)

	theatricalRegex = regexp.MustCompile(`(?i)\b(OVA|OAD)\b|剧场版|劇場版`)
)

// Directory names are matched unmodified; the rule list leans on explicit
// season and year markers before falling through to the whole name.
var dirTitleRules = []*regexp.Regexp{
	regexp.MustCompile(`^(?P<title>.+?)[\s._-]*第(?P<season>[` + cjkNumerals + `]+)[季期部]`),
	regexp.MustCompile(`(?i)^(?P<title>.+?)[\s._-]+S(?P<season>\d{1,2})(?:[\s._-]|$)`),
	regexp.MustCompile(`(?i)^(?P<title>.+?)[\s._-]+Season[\s._-]*(?P<season>\d{1,2})\b`),
	regexp.MustCompile(`^(?P<title>.+?)[\s._-]*[(\[](?P<year>(?:19|20)\d{2})[)\]]`),
	regexp.MustCompile(`^(?P<title>.+?)[\s._-]+(?P<year>(?:19|20)\d{2})(?:[\s._-]|$)`),
	regexp.MustCompile(`^(?P<title>.+)$`),
}

// File names must carry some structural marker (SxxEyy, a CJK episode
// label, an anime-style " - NN", an EP token or a year) for a title to be
// extracted; a bare "Episode 05" matches nothing here and fails over to
// the parent-folder path.
var fileTitleRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?P<title>.+?)[\s._-]+S(?P<season>\d{1,2})E\d{1,3}\b`),
	regexp.MustCompile(`^(?P<title>.+?)[\s._-]*第[` + cjkNumerals + `]+[集话話回]`),
	regexp.MustCompile(`^\[[^\]]+\][\s._-]*(?P<title>.+?)[\s._-]+-[\s._-]+\d{1,3}\b`),
	regexp.MustCompile(`(?i)^(?P<title>.+?)[\s._-]+E(?:p(?:isode)?)?[\s._-]?\d{1,3}\b`),
	regexp.MustCompile(`^(?P<title>.+?)\s+-\s+\d{1,3}\b`),
	regexp.MustCompile(`^(?P<title>.+?)[\s._-]*[(\[]?(?P<year>(?:19|20)\d{2})[)\]]?(?:[\s._-]|$)`),
}

// Season rules scanned when no title rule captured a season directly.
var seasonRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bS(\d{1,2})E\d{1,3}\b`),
	regexp.MustCompile(`(?i)\bSeason[\s._-]*(\d{1,2})\b`),
	regexp.MustCompile(`(?i)\bS(\d{1,2})\b`),
	regexp.MustCompile(`第([` + cjkNumerals + `]+)[季期部]`),
}

// Episode rules, required for files.
var episodeRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bS\d{1,2}E(\d{1,3})\b`),
	regexp.MustCompile(`第([` + cjkNumerals + `]+)[集话話回]`),
	regexp.MustCompile(`(?i)\bE(?:p(?:isode)?)?[\s._-]?(\d{1,3})\b`),
	regexp.MustCompile(`\s-\s(\d{1,3})\b`),
	regexp.MustCompile(`(?:^|[\s._-])(\d{1,2})(?:[\s._-]|$)`),
}

// CleanFileName strips the extension and known release tags from a file
// name. Directory names are left alone by callers.
func CleanFileName(name string) string {
	cleaned := extensionRegex.ReplaceAllString(name, "")
	for _, re := range releaseTagRegexes {
		cleaned = re.ReplaceAllString(cleaned, " ")
	}
	return strings.TrimSpace(cleaned)
}

// ExtractYear pulls a 4-digit release year out of a name, 0 when absent.
func ExtractYear(name string) int {
	m := yearRegex.FindStringSubmatch(name)
	if len(m) < 2 {
		return 0
	}
	if v, ok := ParseNumeral(m[1]); ok {
		return v
	}
	return 0
}

// IsTheatrical reports whether the name carries a theatrical/OVA marker,
// used as a movie-vs-TV disambiguation signal.
func IsTheatrical(name string) bool {
	return theatricalRegex.MatchString(name)
}
