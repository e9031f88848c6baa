package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

// Weekday identifies a recurring calendar day, Monday = 1 through Sunday = 7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = map[string]Weekday{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
	"sunday":    Sunday,
}

// ParseWeekday accepts either a day name or a number 1-7 (Monday = 1).
func ParseWeekday(raw string) (Weekday, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return 0, appErrors.Clone(appErrors.ErrInvalidFormat, "weekday must not be empty")
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n < 1 || n > 7 {
			return 0, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("weekday number %d is outside 1-7", n))
		}
		return Weekday(n), nil
	}
	if day, ok := weekdayNames[trimmed]; ok {
		return day, nil
	}
	return 0, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("unknown weekday %q", raw))
}

// Valid reports whether the weekday falls inside the Monday-Sunday range.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	names := [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return names[w-1]
}

// Time maps the weekday onto the standard library representation (Sunday = 0).
func (w Weekday) Time() time.Weekday {
	if w == Sunday {
		return time.Sunday
	}
	return time.Weekday(w)
}

// OccurrencesIn counts the calendar dates in the month that fall on this
// weekday. The result is always 4 or 5.
func (w Weekday) OccurrencesIn(m Month) int {
	daysInMonth := time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	count := 0
	for day := 1; day <= daysInMonth; day++ {
		if time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC).Weekday() == w.Time() {
			count++
		}
	}
	return count
}

// TimeOfDay is a clock time on a 24-hour day, minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses the fixed HH:MM form.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(raw)
	parts := strings.Split(trimmed, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return TimeOfDay{}, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("time %q is not in HH:MM form", raw))
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("time %q has an invalid hour", raw))
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("time %q has an invalid minute", raw))
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// MinuteOfDay returns minutes elapsed since midnight.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// Before reports strict ordering within the day.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.MinuteOfDay() < other.MinuteOfDay()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// LessonInterval is a half-open [start, end) time window within a day.
type LessonInterval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// NewLessonInterval builds an interval, requiring start strictly before end.
func NewLessonInterval(start, end TimeOfDay) (LessonInterval, error) {
	if !start.Before(end) {
		return LessonInterval{}, appErrors.Clone(appErrors.ErrInvalidRange, fmt.Sprintf("lesson must end after it starts (%s-%s)", start, end))
	}
	return LessonInterval{Start: start, End: end}, nil
}

// ParseLessonInterval parses start and end HH:MM texts into an interval.
func ParseLessonInterval(startRaw, endRaw string) (LessonInterval, error) {
	start, err := ParseTimeOfDay(startRaw)
	if err != nil {
		return LessonInterval{}, err
	}
	end, err := ParseTimeOfDay(endRaw)
	if err != nil {
		return LessonInterval{}, err
	}
	return NewLessonInterval(start, end)
}

// Overlaps reports whether two half-open intervals intersect. Intervals that
// merely touch at a boundary do not overlap.
func (i LessonInterval) Overlaps(other LessonInterval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// DurationHours is the interval length truncated to whole hours, matching the
// billing granularity.
func (i LessonInterval) DurationHours() int {
	return (i.End.MinuteOfDay() - i.Start.MinuteOfDay()) / 60
}

func (i LessonInterval) String() string {
	return fmt.Sprintf("%s-%s", i.Start, i.End)
}

// Month is a calendar month key (year plus month number).
type Month struct {
	Year  int
	Month time.Month
}

// MarshalJSON renders the YYYY-MM key form.
func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON parses the YYYY-MM key form.
func (m *Month) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseMonth(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMonth parses the YYYY-MM key form.
func ParseMonth(raw string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(raw))
	if err != nil {
		return Month{}, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("month %q is not in YYYY-MM form", raw))
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf truncates an instant to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

// Before reports whether m precedes other.
func (m Month) Before(other Month) bool {
	return m.index() < other.index()
}

// After reports whether m follows other.
func (m Month) After(other Month) bool {
	return m.index() > other.index()
}

// Equal reports whether both values name the same calendar month.
func (m Month) Equal(other Month) bool {
	return m.index() == other.index()
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}
