package news

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// $1,234.56 style amounts, or a bare number followed by a currency word
	moneyRegex = regexp.MustCompile(`\$\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|\d+\s(?:dollars|USD)`)

	publishedRegex = regexp.MustCompile(`Published (\w+) (\d{1,2}), (\d{4})`)

	monthNames = map[string]time.Month{
		"jan": time.January, "january": time.January,
		"feb": time.February, "february": time.February,
		"mar": time.March, "march": time.March,
		"apr": time.April, "april": time.April,
		"may": time.May,
		"jun": time.June, "june": time.June,
		"jul": time.July, "july": time.July,
		"aug": time.August, "august": time.August,
		"sep": time.September, "sept": time.September, "september": time.September,
		"oct": time.October, "october": time.October,
		"nov": time.November, "november": time.November,
		"dec": time.December, "december": time.December,
	}
)

// CountPhraseOccurrences counts non-overlapping, case-sensitive literal matches of phrase in text
func CountPhraseOccurrences(phrase, text string) int {
	if phrase == "" {
		return 0
	}
	return strings.Count(text, phrase)
}

// ContainsMoney reports whether text mentions a numeric monetary amount
func ContainsMoney(text string) bool {
	return moneyRegex.MatchString(text)
}

// LookupMonth resolves an English month name or abbreviation, ignoring case
func LookupMonth(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(name)]
	return m, ok
}

// ParsePublishedDate finds the first "Published <Month> <Day>, <Year>" in text.
// It returns false when the pattern is missing or the date does not exist.
func ParsePublishedDate(text string) (time.Time, bool) {
	match := publishedRegex.FindStringSubmatch(text)
	if match == nil {
		return time.Time{}, false
	}

	month, ok := LookupMonth(match[1])
	if !ok {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(match[2])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(match[3])
	if err != nil {
		return time.Time{}, false
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	// time.Date normalizes Feb 30 into March; reject instead
	if date.Day() != day || date.Month() != month {
		return time.Time{}, false
	}
	return date, true
}
