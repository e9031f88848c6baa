package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

// Subject is the closed set of subjects a lesson can cover.
type Subject string

const (
	SubjectMath       Subject = "math"
	SubjectPhysics    Subject = "physics"
	SubjectChemistry  Subject = "chemistry"
	SubjectBiology    Subject = "biology"
	SubjectEnglish    Subject = "english"
	SubjectIndonesian Subject = "indonesian"
)

// Subjects lists every valid subject.
func Subjects() []Subject {
	return []Subject{SubjectMath, SubjectPhysics, SubjectChemistry, SubjectBiology, SubjectEnglish, SubjectIndonesian}
}

// ParseSubject validates membership in the closed subject set.
func ParseSubject(raw string) (Subject, error) {
	candidate := Subject(strings.TrimSpace(strings.ToLower(raw)))
	for _, s := range Subjects() {
		if s == candidate {
			return s, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("unknown subject %q", raw))
}

// Level grades lesson difficulty from 1 to 5.
type Level int

const (
	MinLevel Level = 1
	MaxLevel Level = 5
)

// ParseLevel parses and range-checks a level value.
func ParseLevel(raw string) (Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("level %q is not a number", raw))
	}
	level := Level(n)
	if level < MinLevel || level > MaxLevel {
		return 0, appErrors.Clone(appErrors.ErrInvalidRange, fmt.Sprintf("level %d is outside %d-%d", n, MinLevel, MaxLevel))
	}
	return level, nil
}

// Lesson is one recurring weekly slot bound to a student.
type Lesson struct {
	ID          string         `json:"id"`
	StudentID   string         `json:"student_id"`
	Subject     Subject        `json:"subject"`
	Level       Level          `json:"level"`
	Weekday     Weekday        `json:"weekday"`
	Interval    LessonInterval `json:"interval"`
	HourlyRate  Amount         `json:"hourly_rate"`
	StudentName string         `json:"student_name,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DurationHours is the weekly slot length in whole hours.
func (l Lesson) DurationHours() int {
	return l.Interval.DurationHours()
}

// EarningsPerOccurrence is what one held lesson bills.
func (l Lesson) EarningsPerOccurrence() Amount {
	return l.HourlyRate.MulInt(l.DurationHours())
}

// ClashesWith reports a schedule collision: same weekday, overlapping
// intervals. Subject, level and rate play no part here.
func (l Lesson) ClashesWith(other Lesson) bool {
	return l.Weekday == other.Weekday && l.Interval.Overlaps(other.Interval)
}

// SameSlot is the lesson's identity for duplicate detection: weekday,
// interval, subject and level. The hourly rate and bound student are
// deliberately excluded.
func (l Lesson) SameSlot(other Lesson) bool {
	return l.Weekday == other.Weekday &&
		l.Interval == other.Interval &&
		l.Subject == other.Subject &&
		l.Level == other.Level
}

// Equivalent is full structural equality of the schedule-relevant fields,
// identity plus hourly rate.
func (l Lesson) Equivalent(other Lesson) bool {
	return l.SameSlot(other) && l.HourlyRate.Equal(other.HourlyRate)
}

// Timetable is one student's ordered weekly schedule. It rejects duplicate
// slots and time clashes, and projects the schedule onto calendar months.
type Timetable struct {
	lessons []Lesson
}

// NewTimetable wraps an already-consistent lesson list, preserving order.
func NewTimetable(lessons []Lesson) *Timetable {
	copied := make([]Lesson, len(lessons))
	copy(copied, lessons)
	return &Timetable{lessons: copied}
}

// Len returns the number of lessons in the timetable.
func (t *Timetable) Len() int {
	return len(t.lessons)
}

// Lessons returns a copy of the schedule in insertion order.
func (t *Timetable) Lessons() []Lesson {
	copied := make([]Lesson, len(t.lessons))
	copy(copied, t.lessons)
	return copied
}

// Add appends a lesson. Identity collisions are reported as DUPLICATE_LESSON
// before overlap collisions are reported as TIME_CLASH, so a true re-add is
// distinguishable from a conflicting new slot.
func (t *Timetable) Add(lesson Lesson) error {
	for _, existing := range t.lessons {
		if existing.SameSlot(lesson) {
			return appErrors.Clone(appErrors.ErrDuplicateLesson, fmt.Sprintf("%s level %d on %s %s already scheduled", lesson.Subject, lesson.Level, lesson.Weekday, lesson.Interval))
		}
	}
	for _, existing := range t.lessons {
		if existing.ClashesWith(lesson) {
			return appErrors.Clone(appErrors.ErrTimeClash, fmt.Sprintf("%s %s overlaps existing lesson at %s", lesson.Weekday, lesson.Interval, existing.Interval))
		}
	}
	t.lessons = append(t.lessons, lesson)
	return nil
}

// Get returns the lesson at the given 1-based position.
func (t *Timetable) Get(position int) (Lesson, error) {
	if position < 1 || position > len(t.lessons) {
		return Lesson{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no lesson at position %d", position))
	}
	return t.lessons[position-1], nil
}

// Remove deletes the first lesson structurally equal to the given one.
func (t *Timetable) Remove(lesson Lesson) error {
	for i, existing := range t.lessons {
		if existing.Equivalent(lesson) {
			t.lessons = append(t.lessons[:i], t.lessons[i+1:]...)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "lesson not found in schedule")
}

// Replace swaps target for replacement in place. Replacing a lesson with an
// unchanged identity is allowed; colliding with a different entry is not.
func (t *Timetable) Replace(target, replacement Lesson) error {
	index := -1
	for i, existing := range t.lessons {
		if existing.Equivalent(target) {
			index = i
			break
		}
	}
	if index < 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "lesson not found in schedule")
	}
	for i, existing := range t.lessons {
		if i == index {
			continue
		}
		if existing.SameSlot(replacement) {
			return appErrors.Clone(appErrors.ErrDuplicateLesson, fmt.Sprintf("%s level %d on %s %s already scheduled", replacement.Subject, replacement.Level, replacement.Weekday, replacement.Interval))
		}
		if existing.ClashesWith(replacement) {
			return appErrors.Clone(appErrors.ErrTimeClash, fmt.Sprintf("%s %s overlaps existing lesson at %s", replacement.Weekday, replacement.Interval, existing.Interval))
		}
	}
	t.lessons[index] = replacement
	return nil
}

// HoursInMonth totals lesson hours across every occurrence in the month.
func (t *Timetable) HoursInMonth(m Month) int {
	total := 0
	for _, lesson := range t.lessons {
		total += lesson.Weekday.OccurrencesIn(m) * lesson.DurationHours()
	}
	return total
}

// EarningsInMonth projects the recurring schedule onto a month's billing.
func (t *Timetable) EarningsInMonth(m Month) Amount {
	total := ZeroAmount()
	for _, lesson := range t.lessons {
		total = total.Add(lesson.EarningsPerOccurrence().MulInt(lesson.Weekday.OccurrencesIn(m)))
	}
	return total
}
