package core

// convert.go provides the value conversions applied by the row normalizer.
//
// These functions handle the messy reality of instrument exports:
//   - Units glued to numbers ("1,250 MΩ", "45.2Nm")
//   - Several pass/fail vocabularies (PASS, OK, NG, 1/0)
//   - US, ISO and two-digit-year timestamps
//
// A conversion that finds nothing usable reports that explicitly; it never
// substitutes zero.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// looseNumberRegex finds the first signed decimal in a cell.
var looseNumberRegex = regexp.MustCompile(`[-+]?\d+(\.\d+)?`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Timestamp layouts split by year format for proper 2-digit year handling.
var (
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006 3:04:05 PM",
		"1/2/2006 3:04 PM",
		"1-2-2006 15:04:05",
		"1.2.2006 15:04:05",
		"Jan 2, 2006 15:04:05",
		"Jan 2, 2006 3:04:05 PM",
		"2 Jan 2006 15:04:05",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "1-2-2006", "1.2.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06 15:04:05", "1/2/06 15:04", "1/2/06 3:04 PM",
		"1/2/06", "1-2-06", "1.2.06",
	}
)

// LooseNumber extracts the first number from s after removing thousands
// separators. Returns false when s holds no digits.
func LooseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}

	m := looseNumberRegex.FindString(s)
	if m == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseVerdict maps a pass/fail cell to a Verdict using a fixed
// case-insensitive vocabulary. Anything else, including empty, is UNKNOWN.
func ParseVerdict(s string) Verdict {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "ok", "good", "true", "1", "p":
		return VerdictPass
	case "fail", "ng", "bad", "false", "0", "f":
		return VerdictFail
	default:
		return VerdictUnknown
	}
}

// ParseTimestamp parses an instrument timestamp.
// Zone-less timestamps are read as UTC. Returns false if no layout matches.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ConvertValue applies the conversion for kind to a raw cell.
func ConvertValue(kind ValueKind, raw string) Value {
	text := strings.TrimSpace(raw)
	v := Value{Text: text}

	switch kind {
	case KindNumber:
		if n, ok := LooseNumber(text); ok {
			v.Number = &n
		}
	case KindVerdict:
		v.Verdict = ParseVerdict(text)
	}
	return v
}

// IsBlank reports whether v carries nothing for its kind. A number field
// whose text held no digits counts as blank.
func (v Value) IsBlank(kind ValueKind) bool {
	if kind == KindNumber {
		return v.Number == nil
	}
	return v.Text == ""
}
