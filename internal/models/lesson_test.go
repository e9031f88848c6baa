package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

func makeLesson(t *testing.T, subject Subject, level Level, day Weekday, start, end, rate string) Lesson {
	t.Helper()
	interval, err := ParseLessonInterval(start, end)
	require.NoError(t, err)
	return Lesson{
		Subject:    subject,
		Level:      level,
		Weekday:    day,
		Interval:   interval,
		HourlyRate: MustAmount(rate),
	}
}

func TestParseSubjectAndLevel(t *testing.T) {
	subject, err := ParseSubject("Math")
	require.NoError(t, err)
	assert.Equal(t, SubjectMath, subject)

	_, err = ParseSubject("astrology")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidFormat))

	level, err := ParseLevel("3")
	require.NoError(t, err)
	assert.Equal(t, Level(3), level)

	_, err = ParseLevel("6")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidRange))

	_, err = ParseLevel("x")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidFormat))
}

func TestLessonBilling(t *testing.T) {
	lesson := makeLesson(t, SubjectMath, 2, Monday, "10:00", "12:00", "30")
	assert.Equal(t, 2, lesson.DurationHours())
	assert.Equal(t, "60.00", lesson.EarningsPerOccurrence().String())

	// 90 minutes bills as one whole hour.
	short := makeLesson(t, SubjectMath, 2, Monday, "10:00", "11:30", "30")
	assert.Equal(t, 1, short.DurationHours())
	assert.Equal(t, "30.00", short.EarningsPerOccurrence().String())
}

func TestLessonIdentityExcludesRate(t *testing.T) {
	a := makeLesson(t, SubjectMath, 2, Monday, "10:00", "12:00", "30")
	b := makeLesson(t, SubjectMath, 2, Monday, "10:00", "12:00", "45")

	assert.True(t, a.SameSlot(b))
	assert.False(t, a.Equivalent(b))
}

func TestLessonClashIgnoresSubject(t *testing.T) {
	a := makeLesson(t, SubjectMath, 2, Monday, "10:00", "12:00", "30")
	b := makeLesson(t, SubjectPhysics, 5, Monday, "11:00", "13:00", "50")
	c := makeLesson(t, SubjectMath, 2, Tuesday, "11:00", "13:00", "30")

	assert.True(t, a.ClashesWith(b))
	assert.False(t, a.ClashesWith(c), "different weekday never clashes")
}

func TestTimetableAdd(t *testing.T) {
	tt := NewTimetable(nil)
	lesson := makeLesson(t, SubjectMath, 2, Monday, "10:00", "12:00", "30")
	require.NoError(t, tt.Add(lesson))

	// Re-adding the same identity is rejected and the size stays at 1,
	// even when the rate differs.
	repriced := lesson
	repriced.HourlyRate = MustAmount("45")
	err := tt.Add(repriced)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateLesson))
	assert.Equal(t, 1, tt.Len())

	// An identity-distinct but overlapping slot is a time clash.
	clashing := makeLesson(t, SubjectPhysics, 3, Monday, "11:00", "13:00", "50")
	err = tt.Add(clashing)
	assert.True(t, appErrors.Is(err, appErrors.ErrTimeClash))

	// Boundary-touching slot is fine.
	adjacent := makeLesson(t, SubjectPhysics, 3, Monday, "12:00", "14:00", "50")
	require.NoError(t, tt.Add(adjacent))
	assert.Equal(t, 2, tt.Len())
}

func TestTimetableGetByPosition(t *testing.T) {
	first := makeLesson(t, SubjectMath, 2, Monday, "10:00", "12:00", "30")
	second := makeLesson(t, SubjectEnglish, 1, Wednesday, "15:00", "16:00", "25")
	tt := NewTimetable([]Lesson{first, second})

	got, err := tt.Get(1)
	require.NoError(t, err)
	assert.True(t, got.Equivalent(first))

	got, err = tt.Get(2)
	require.NoError(t, err)
	assert.True(t, got.Equivalent(second))

	_, err = tt.Get(0)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = tt.Get(3)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTimetableRemove(t *testing.T) {
	lesson := makeLesson(t, SubjectMath, 2, Monday, "10:00", "12:00", "30")
	tt := NewTimetable([]Lesson{lesson})

	// Same identity at a different rate is not structurally equal.
	repriced := lesson
	repriced.HourlyRate = MustAmount("45")
	err := tt.Remove(repriced)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, tt.Remove(lesson))
	assert.Equal(t, 0, tt.Len())

	err = tt.Remove(lesson)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTimetableReplace(t *testing.T) {
	math := makeLesson(t, SubjectMath, 2, Monday, "10:00", "12:00", "30")
	english := makeLesson(t, SubjectEnglish, 1, Wednesday, "15:00", "16:00", "25")
	tt := NewTimetable([]Lesson{math, english})

	// Self-replacement with an unchanged identity (rate edit) is allowed.
	repriced := math
	repriced.HourlyRate = MustAmount("45")
	require.NoError(t, tt.Replace(math, repriced))
	got, err := tt.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "45.00", got.HourlyRate.String())

	// Colliding with a different entry's identity is rejected.
	err = tt.Replace(repriced, makeLesson(t, SubjectEnglish, 1, Wednesday, "15:00", "16:00", "99"))
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateLesson))

	// Replacing a lesson that is not present fails.
	missing := makeLesson(t, SubjectBiology, 4, Friday, "09:00", "10:00", "20")
	err = tt.Replace(missing, math)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTimetableMonthlyProjection(t *testing.T) {
	// One weekly Monday lesson, 2 hours at $30/hr. October 2025 has 4 Mondays.
	lesson := makeLesson(t, SubjectMath, 2, Monday, "10:00", "12:00", "30")
	tt := NewTimetable([]Lesson{lesson})
	oct := Month{Year: 2025, Month: time.October}

	assert.Equal(t, 8, tt.HoursInMonth(oct))
	assert.Equal(t, "240.00", tt.EarningsInMonth(oct).String())

	// Empty timetable projects to zero.
	empty := NewTimetable(nil)
	assert.Equal(t, 0, empty.HoursInMonth(oct))
	assert.True(t, empty.EarningsInMonth(oct).IsZero())
}
