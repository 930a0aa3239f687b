package parser

import "testing"

func TestParseNumeralCJK(t *testing.T) {
	cases := map[string]int{
		"一":   1,
		"九":   9,
		"十":   10,
		"十二":  12,
		"三十":  30,
		"二十五": 25,
		"两":   2,
		"百":   100,
		"千":   1000,
	}

	for token, want := range cases {
		got, ok := ParseNumeral(token)
		if !ok {
			t.Errorf("ParseNumeral(%q) not recognized", token)
			continue
		}
		if got != want {
			t.Errorf("ParseNumeral(%q) = %d, want %d", token, got, want)
		}
	}
}

func TestParseNumeralASCII(t *testing.T) {
	got, ok := ParseNumeral("42")
	if !ok || got != 42 {
		t.Errorf("ParseNumeral(\"42\") = %d, %v, want 42, true", got, ok)
	}
}

func TestParseNumeralUnrecognized(t *testing.T) {
	for _, token := range []string{"", "abc", "十千", "一二三四", "4.5"} {
		if _, ok := ParseNumeral(token); ok {
			t.Errorf("ParseNumeral(%q) should not be recognized", token)
		}
	}
}
