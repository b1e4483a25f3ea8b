package schedule

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

//go:embed vaccines.json
var vaccinesFS embed.FS

// Offset types for a vaccine dose relative to the child's birth date.
const (
	OffsetBirth  = "birth"
	OffsetWeeks  = "weeks"
	OffsetMonths = "months"
	OffsetYears  = "years"
)

// Vaccine is one dose in the national immunization schedule. The timing is
// always expressed in weeks (AgeInWeeks); Type selects how that magnitude is
// converted to a calendar offset.
type Vaccine struct {
	Name       string  `json:"name"`
	Dose       int     `json:"dose"`
	Type       string  `json:"type"`
	AgeInWeeks float64 `json:"age_in_weeks"`
}

// DateLayout is the wire format for all calendar dates in user records and
// vaccine due dates.
const DateLayout = "2006-01-02"

// The reference schedule expresses every age in weeks. Month and year doses
// are converted with fixed average divisors rather than literal day counts.
const (
	weeksPerMonth = 365.25 / 12 / 7 // ~4.348
	weeksPerYear  = 52.177

	avgDaysPerMonth = 365.25 / 12
	avgDaysPerYear  = 365.25
)

// Load parses the embedded vaccine schedule, sorted by ascending age.
func Load() ([]Vaccine, error) {
	data, err := vaccinesFS.ReadFile("vaccines.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded schedule: %w", err)
	}
	var vaccines []Vaccine
	if err := json.Unmarshal(data, &vaccines); err != nil {
		return nil, fmt.Errorf("parsing vaccine schedule: %w", err)
	}
	sort.SliceStable(vaccines, func(i, j int) bool {
		return vaccines[i].AgeInWeeks < vaccines[j].AgeInWeeks
	})
	return vaccines, nil
}

// DueDate computes the calendar date a dose becomes due for a child born on
// birthDate (YYYY-MM-DD). Pure and deterministic: same inputs always yield
// the same date.
func DueDate(birthDate string, v Vaccine) (time.Time, error) {
	birth, err := time.Parse(DateLayout, birthDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing birth date %q: %w", birthDate, err)
	}

	switch v.Type {
	case OffsetBirth:
		return birth, nil
	case OffsetWeeks:
		return birth.AddDate(0, 0, int(v.AgeInWeeks*7)), nil
	case OffsetMonths:
		return addFractional(birth, v.AgeInWeeks/weeksPerMonth, monthUnit), nil
	case OffsetYears:
		return addFractional(birth, v.AgeInWeeks/weeksPerYear, yearUnit), nil
	default:
		return time.Time{}, fmt.Errorf("unknown offset type %q for vaccine %s", v.Type, v.Name)
	}
}

type calendarUnit int

const (
	monthUnit calendarUnit = iota
	yearUnit
)

// addFractional adds a possibly fractional number of months or years: whole
// units via calendar arithmetic, the remainder as average-length days.
func addFractional(t time.Time, amount float64, unit calendarUnit) time.Time {
	whole := int(amount)
	frac := amount - float64(whole)

	var out time.Time
	var avgDays float64
	switch unit {
	case monthUnit:
		out = t.AddDate(0, whole, 0)
		avgDays = avgDaysPerMonth
	default:
		out = t.AddDate(whole, 0, 0)
		avgDays = avgDaysPerYear
	}
	return out.AddDate(0, 0, int(frac*avgDays+0.5))
}
