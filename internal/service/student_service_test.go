package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbill/tutorbill-api/internal/models"
	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

type mockStudentCrudRepo struct {
	students []models.Student
	seq      int
}

func (m *mockStudentCrudRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return m.students, len(m.students), nil
}

func (m *mockStudentCrudRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, s := range m.students {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentCrudRepo) Create(ctx context.Context, student *models.Student) error {
	m.seq++
	student.ID = fmt.Sprintf("student-%d", m.seq)
	student.PaymentStatus = models.PaymentStatusPaid
	m.students = append(m.students, *student)
	return nil
}

func (m *mockStudentCrudRepo) Update(ctx context.Context, student *models.Student) error {
	for i := range m.students {
		if m.students[i].ID == student.ID {
			m.students[i] = *student
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockStudentCrudRepo) Deactivate(ctx context.Context, id string) error {
	for i := range m.students {
		if m.students[i].ID == id {
			m.students[i].Active = false
			return nil
		}
	}
	return sql.ErrNoRows
}

func newStudentFixture() (*StudentService, *mockStudentCrudRepo, *mockLessonRepo, *mockPaymentRepo) {
	students := &mockStudentCrudRepo{}
	lessons := &mockLessonRepo{}
	payments := &mockPaymentRepo{}
	svc := NewStudentService(students, lessons, payments, nil, nil, octoberClock())
	return svc, students, lessons, payments
}

func TestStudentServiceCreate(t *testing.T) {
	svc, students, _, _ := newStudentFixture()

	student, err := svc.Create(context.Background(), CreateStudentRequest{FullName: "Budi Santoso", Phone: "0812"})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.True(t, student.Active)
	assert.Len(t, students.students, 1)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc, _, _, _ := newStudentFixture()

	_, err := svc.Create(context.Background(), CreateStudentRequest{FullName: "B"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), CreateStudentRequest{FullName: "Budi", Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestStudentServiceGetDetail(t *testing.T) {
	svc, students, lessons, payments := newStudentFixture()
	students.students = append(students.students, models.Student{ID: "s1", FullName: "Budi", Active: true, PaymentStatus: models.PaymentStatusUnpaid})
	lessons.lessons = []models.Lesson{mondayLesson("s1")}

	sept := models.NewPayment(models.Month{Year: 2025, Month: time.September}, models.MustAmount("300.00"))
	sept.ID = "p1"
	sept.StudentID = "s1"
	oct := models.NewPayment(models.Month{Year: 2025, Month: time.October}, models.MustAmount("400.00"))
	oct.ID = "p2"
	oct.StudentID = "s1"
	require.NoError(t, oct.RecordPayment(models.MustAmount("100.00")))
	payments.payments = append(payments.payments, sept, oct)

	detail, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, detail.LessonCount)
	assert.Equal(t, "400.00", detail.CurrentMonthTotal.String())
	assert.Equal(t, "600.00", detail.OutstandingTotal.String())
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc, _, _, _ := newStudentFixture()

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceUpdateAndDeactivate(t *testing.T) {
	svc, students, _, _ := newStudentFixture()
	students.students = append(students.students, models.Student{ID: "s1", FullName: "Budi", Active: true})

	updated, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{FullName: "Budi Santoso", Phone: "0813"})
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", updated.FullName)

	require.NoError(t, svc.Deactivate(context.Background(), "s1"))
	assert.False(t, students.students[0].Active)

	err = svc.Deactivate(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
