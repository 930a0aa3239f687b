package parser

import (
	"strconv"
	"strings"
)

// cjkDigits maps the numeral characters seen in season/episode labels.
// Magnitudes above the low hundreds never show up there, so nothing larger
// is handled.
var cjkDigits = map[rune]int{
	'零': 0,
	'一': 1,
	'二': 2,
	'两': 2,
	'三': 3,
	'四': 4,
	'五': 5,
	'六': 6,
	'七': 7,
	'八': 8,
	'九': 9,
	'十': 10,
	'百': 100,
	'千': 1000,
}

// ParseNumeral converts a numeric token to an integer. It understands
// single CJK digit characters, the compound forms "十X" and "X十" (and
// "X十Y"), and plain ASCII integers. The second return value is false when
// the token is unrecognized; callers must treat that as "not found", never
// as zero.
func ParseNumeral(token string) (int, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}

	runes := []rune(token)
	if v, ok := parseCJK(runes); ok {
		return v, true
	}

	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseCJK(runes []rune) (int, bool) {
	for _, r := range runes {
		if _, ok := cjkDigits[r]; !ok {
			return 0, false
		}
	}

	switch len(runes) {
	case 1:
		return cjkDigits[runes[0]], true
	case 2:
		a, b := cjkDigits[runes[0]], cjkDigits[runes[1]]
		if runes[0] == '十' && b >= 1 && b <= 9 {
			return 10 + b, true // 十二 = 12
		}
		if runes[1] == '十' && a >= 1 && a <= 9 {
			return a * 10, true // 三十 = 30
		}
		return 0, false
	case 3:
		a, b := cjkDigits[runes[0]], cjkDigits[runes[2]]
		if runes[1] == '十' && a >= 1 && a <= 9 && b >= 1 && b <= 9 {
			return a*10 + b, true // 二十五 = 25
		}
		return 0, false
	}
	return 0, false
}
