package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbill/tutorbill-api/internal/models"
	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

type mockStateRepo struct {
	month models.Month
	found bool
	sets  int
}

func (m *mockStateRepo) GetLastOpenedMonth(ctx context.Context) (models.Month, bool, error) {
	return m.month, m.found, nil
}

func (m *mockStateRepo) SetLastOpenedMonth(ctx context.Context, month models.Month) error {
	m.month = month
	m.found = true
	m.sets++
	return nil
}

func newRolloverFixture(now time.Time, watermark *models.Month) (*RolloverService, *mockLessonRepo, *mockPaymentRepo, *mockStudentRepo, *mockStateRepo) {
	lessons := &mockLessonRepo{}
	payments := &mockPaymentRepo{}
	students := &mockStudentRepo{students: []models.Student{{ID: "s1", FullName: "Budi", Active: true}}}
	state := &mockStateRepo{}
	if watermark != nil {
		state.month = *watermark
		state.found = true
	}
	svc := NewRolloverService(students, lessons, payments, state, nil, nil, nil, fixedClock{now: now})
	return svc, lessons, payments, students, state
}

func mondayLesson(studentID string) models.Lesson {
	interval, _ := models.ParseLessonInterval("09:00", "11:00")
	return models.Lesson{
		ID:         "lesson-1",
		StudentID:  studentID,
		Subject:    models.SubjectMath,
		Level:      2,
		Weekday:    models.Monday,
		Interval:   interval,
		HourlyRate: models.MustAmount("50.00"),
	}
}

func TestRolloverFirstRunInitializesWatermark(t *testing.T) {
	now := time.Date(2025, time.April, 10, 8, 0, 0, 0, time.UTC)
	svc, lessons, payments, _, state := newRolloverFixture(now, nil)
	lessons.lessons = []models.Lesson{mondayLesson("s1")}

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Month{Year: 2025, Month: time.April}, state.month)
	assert.Zero(t, result.Inserted)
	assert.Empty(t, payments.payments)
}

func TestRolloverNoopWhenCurrent(t *testing.T) {
	now := time.Date(2025, time.April, 10, 8, 0, 0, 0, time.UTC)
	watermark := models.Month{Year: 2025, Month: time.April}
	svc, lessons, payments, _, state := newRolloverFixture(now, &watermark)
	lessons.lessons = []models.Lesson{mondayLesson("s1")}

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
	assert.Empty(t, payments.payments)
	assert.Zero(t, state.sets)
}

func TestRolloverCatchesUpAfterDowntime(t *testing.T) {
	// watermark January, clock April: February, March and April must open
	now := time.Date(2025, time.April, 10, 8, 0, 0, 0, time.UTC)
	watermark := models.Month{Year: 2025, Month: time.January}
	svc, lessons, payments, students, state := newRolloverFixture(now, &watermark)
	lessons.lessons = []models.Lesson{mondayLesson("s1")}

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.MonthsProcessed)
	assert.Equal(t, 3, result.Inserted)
	require.Len(t, payments.payments, 3)

	// four Mondays in February and April 2025, five in March
	feb := payments.get("s1", models.Month{Year: 2025, Month: time.February})
	require.NotNil(t, feb)
	assert.Equal(t, "400.00", feb.Total.String())
	mar := payments.get("s1", models.Month{Year: 2025, Month: time.March})
	require.NotNil(t, mar)
	assert.Equal(t, "500.00", mar.Total.String())
	apr := payments.get("s1", models.Month{Year: 2025, Month: time.April})
	require.NotNil(t, apr)
	assert.Equal(t, "400.00", apr.Total.String())

	assert.Equal(t, models.PaymentStatusOverdue, students.statuses["s1"])
	assert.Equal(t, models.Month{Year: 2025, Month: time.April}, state.month)
}

func TestRolloverIsIdempotent(t *testing.T) {
	now := time.Date(2025, time.April, 10, 8, 0, 0, 0, time.UTC)
	watermark := models.Month{Year: 2025, Month: time.January}
	svc, lessons, payments, _, _ := newRolloverFixture(now, &watermark)
	lessons.lessons = []models.Lesson{mondayLesson("s1")}

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	created := payments.creates

	_, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, created, payments.creates)
	assert.Zero(t, payments.updates)
}

func TestRolloverClockRegressionAborts(t *testing.T) {
	now := time.Date(2025, time.April, 10, 8, 0, 0, 0, time.UTC)
	watermark := models.Month{Year: 2025, Month: time.December}
	svc, lessons, payments, _, state := newRolloverFixture(now, &watermark)
	lessons.lessons = []models.Lesson{mondayLesson("s1")}

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrClockRegression))
	assert.Empty(t, payments.payments)
	assert.Equal(t, watermark, state.month)
	assert.Zero(t, state.sets)
}

func TestRolloverPreservesPaidMonths(t *testing.T) {
	now := time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC)
	watermark := models.Month{Year: 2025, Month: time.January}
	svc, lessons, payments, _, _ := newRolloverFixture(now, &watermark)
	lessons.lessons = []models.Lesson{mondayLesson("s1")}

	// February is already billed and fully settled
	feb := models.NewPayment(models.Month{Year: 2025, Month: time.February}, models.MustAmount("400.00"))
	feb.ID = "payment-existing"
	feb.StudentID = "s1"
	feb.MarkPaid()
	payments.payments = append(payments.payments, feb)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)

	stored := payments.get("s1", models.Month{Year: 2025, Month: time.February})
	assert.True(t, stored.IsPaid())
	assert.Equal(t, "400.00", stored.Total.String())
	assert.Zero(t, payments.updates)
}

func TestRolloverSkipsEmptySchedules(t *testing.T) {
	now := time.Date(2025, time.April, 10, 8, 0, 0, 0, time.UTC)
	watermark := models.Month{Year: 2025, Month: time.January}
	svc, _, payments, students, state := newRolloverFixture(now, &watermark)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
	assert.Equal(t, 3, result.Skipped)
	assert.Empty(t, payments.payments)
	assert.Equal(t, models.PaymentStatusPaid, students.statuses["s1"])
	assert.Equal(t, 1, state.sets)
}

func TestRolloverDecemberBoundary(t *testing.T) {
	now := time.Date(2026, time.January, 3, 8, 0, 0, 0, time.UTC)
	watermark := models.Month{Year: 2025, Month: time.December}
	svc, lessons, payments, _, state := newRolloverFixture(now, &watermark)
	lessons.lessons = []models.Lesson{mondayLesson("s1")}

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)

	// four Mondays in January 2026
	jan := payments.get("s1", models.Month{Year: 2026, Month: time.January})
	require.NotNil(t, jan)
	assert.Equal(t, "400.00", jan.Total.String())
	assert.Equal(t, models.Month{Year: 2026, Month: time.January}, state.month)
}
