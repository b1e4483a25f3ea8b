package intent

import (
	"regexp"
	"time"
)

var birthDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// DefaultLookbackYears bounds how far in the past a birth date may lie.
const DefaultLookbackYears = 5

// ExtractBirthDate finds the first YYYY-MM-DD date in text and validates it:
// it must parse strictly, not lie in the future (today is allowed, for a
// parent messaging on the day of birth), and be no more than lookbackYears
// old. Returns the normalized date string and true on success.
func ExtractBirthDate(text string, now time.Time, lookbackYears int) (string, bool) {
	if lookbackYears <= 0 {
		lookbackYears = DefaultLookbackYears
	}

	match := birthDatePattern.FindString(text)
	if match == "" {
		return "", false
	}

	d, err := time.Parse("2006-01-02", match)
	if err != nil {
		return "", false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.After(today) {
		return "", false
	}
	if d.Before(today.AddDate(-lookbackYears, 0, 0)) {
		return "", false
	}
	return d.Format("2006-01-02"), true
}
