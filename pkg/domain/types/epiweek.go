package types

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// EpiWeek represents an epidemiological week following the ISO-8601 week
// calendar. The canonical string form is "YYYY-WW" (e.g. "2024-07").
type EpiWeek struct {
	Year int
	Week int
}

var epiWeekPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)

// ParseEpiWeek parses a "YYYY-WW" string into an EpiWeek
func ParseEpiWeek(s string) (EpiWeek, error) {
	m := epiWeekPattern.FindStringSubmatch(s)
	if m == nil {
		return EpiWeek{}, goerr.New("invalid epidemiological week format, expected YYYY-WW",
			goerr.V("input", s))
	}

	year, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])

	w := EpiWeek{Year: year, Week: week}
	if err := w.Validate(); err != nil {
		return EpiWeek{}, err
	}
	return w, nil
}

// EpiWeekOf returns the epidemiological week containing the given time
func EpiWeekOf(t time.Time) EpiWeek {
	year, week := t.ISOWeek()
	return EpiWeek{Year: year, Week: week}
}

// Validate checks year and week bounds, including 53-week years
func (w EpiWeek) Validate() error {
	if w.Year < 1900 || w.Year > 2200 {
		return goerr.New("epidemiological week year out of range", goerr.V("year", w.Year))
	}
	if w.Week < 1 || w.Week > weeksInYear(w.Year) {
		return goerr.New("epidemiological week number out of range",
			goerr.V("year", w.Year), goerr.V("week", w.Week))
	}
	return nil
}

// IsZero reports whether the week is the zero value
func (w EpiWeek) IsZero() bool {
	return w.Year == 0 && w.Week == 0
}

// String returns the canonical "YYYY-WW" form
func (w EpiWeek) String() string {
	return fmt.Sprintf("%04d-%02d", w.Year, w.Week)
}

// Next returns the following epidemiological week
func (w EpiWeek) Next() EpiWeek {
	if w.Week < weeksInYear(w.Year) {
		return EpiWeek{Year: w.Year, Week: w.Week + 1}
	}
	return EpiWeek{Year: w.Year + 1, Week: 1}
}

// Prev returns the preceding epidemiological week
func (w EpiWeek) Prev() EpiWeek {
	if w.Week > 1 {
		return EpiWeek{Year: w.Year, Week: w.Week - 1}
	}
	return EpiWeek{Year: w.Year - 1, Week: weeksInYear(w.Year - 1)}
}

// Before reports whether w is strictly earlier than other
func (w EpiWeek) Before(other EpiWeek) bool {
	if w.Year != other.Year {
		return w.Year < other.Year
	}
	return w.Week < other.Week
}

// Index returns an absolute week index usable as a linear trend feature
func (w EpiWeek) Index() int {
	return w.Year*53 + w.Week
}

// weeksInYear returns 52 or 53 per the ISO rule: a year has 53 weeks when
// December 28 falls in week 53.
func weeksInYear(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}
