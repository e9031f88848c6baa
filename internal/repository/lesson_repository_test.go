package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbill/tutorbill-api/internal/models"
)

func newLessonMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func lessonRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "subject", "level", "weekday", "start_time", "end_time", "hourly_rate", "student_name", "created_at", "updated_at"})
}

func TestLessonRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newLessonMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := lessonRows().
		AddRow("l1", "s1", "math", 2, 1, "09:00", "11:00", "50.00", "Budi", time.Now(), time.Now()).
		AddRow("l2", "s1", "physics", 3, 2, "13:00", "14:00", "60.00", "Budi", time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM lessons l JOIN students s ON s.id = l.student_id").
		WithArgs("s1").
		WillReturnRows(rows)

	lessons, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, models.SubjectMath, lessons[0].Subject)
	assert.Equal(t, models.Monday, lessons[0].Weekday)
	assert.Equal(t, 2, lessons[0].DurationHours())
	assert.Equal(t, "50.00", lessons[0].HourlyRate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListRejectsCorruptRow(t *testing.T) {
	db, mock, cleanup := newLessonMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := lessonRows().
		AddRow("l1", "s1", "math", 2, 1, "11:00", "09:00", "50.00", "Budi", time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM lessons l JOIN students s").
		WithArgs("s1").
		WillReturnRows(rows)

	_, err := repo.ListByStudent(context.Background(), "s1")
	require.Error(t, err)
}

func TestLessonRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLessonMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("INSERT INTO lessons").
		WithArgs(sqlmock.AnyArg(), "s1", "math", 2, 1, "09:00", "11:00", "50.00", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	interval, err := models.ParseLessonInterval("09:00", "11:00")
	require.NoError(t, err)
	lesson := models.Lesson{
		StudentID:  "s1",
		Subject:    models.SubjectMath,
		Level:      2,
		Weekday:    models.Monday,
		Interval:   interval,
		HourlyRate: models.MustAmount("50.00"),
	}
	require.NoError(t, repo.Create(context.Background(), &lesson))
	assert.NotEmpty(t, lesson.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newLessonMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lessons").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lessons").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	interval, err := models.ParseLessonInterval("09:00", "10:00")
	require.NoError(t, err)
	lessons := []models.Lesson{
		{StudentID: "s1", Subject: models.SubjectMath, Level: 1, Weekday: models.Monday, Interval: interval, HourlyRate: models.MustAmount("40.00")},
		{StudentID: "s1", Subject: models.SubjectEnglish, Level: 1, Weekday: models.Friday, Interval: interval, HourlyRate: models.MustAmount("40.00")},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), lessons))
	assert.NotEmpty(t, lessons[0].ID)
	assert.NotEmpty(t, lessons[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newLessonMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("DELETE FROM lessons WHERE id").
		WithArgs("l1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "l1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
