package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorbill/tutorbill-api/internal/models"
)

// lessonRow is the flat persisted shape of a lesson.
type lessonRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	Subject     string    `db:"subject"`
	Level       int       `db:"level"`
	Weekday     int       `db:"weekday"`
	StartTime   string    `db:"start_time"`
	EndTime     string    `db:"end_time"`
	HourlyRate  string    `db:"hourly_rate"`
	StudentName string    `db:"student_name"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row lessonRow) toModel() (models.Lesson, error) {
	subject, err := models.ParseSubject(row.Subject)
	if err != nil {
		return models.Lesson{}, fmt.Errorf("lesson %s: %w", row.ID, err)
	}
	level, err := models.ParseLevel(fmt.Sprintf("%d", row.Level))
	if err != nil {
		return models.Lesson{}, fmt.Errorf("lesson %s: %w", row.ID, err)
	}
	weekday, err := models.ParseWeekday(fmt.Sprintf("%d", row.Weekday))
	if err != nil {
		return models.Lesson{}, fmt.Errorf("lesson %s: %w", row.ID, err)
	}
	interval, err := models.ParseLessonInterval(row.StartTime, row.EndTime)
	if err != nil {
		return models.Lesson{}, fmt.Errorf("lesson %s: %w", row.ID, err)
	}
	rate, err := models.ParseAmount(row.HourlyRate)
	if err != nil {
		return models.Lesson{}, fmt.Errorf("lesson %s: %w", row.ID, err)
	}
	return models.Lesson{
		ID:          row.ID,
		StudentID:   row.StudentID,
		Subject:     subject,
		Level:       level,
		Weekday:     weekday,
		Interval:    interval,
		HourlyRate:  rate,
		StudentName: row.StudentName,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func fromLessonModel(lesson models.Lesson) lessonRow {
	return lessonRow{
		ID:         lesson.ID,
		StudentID:  lesson.StudentID,
		Subject:    string(lesson.Subject),
		Level:      int(lesson.Level),
		Weekday:    int(lesson.Weekday),
		StartTime:  lesson.Interval.Start.String(),
		EndTime:    lesson.Interval.End.String(),
		HourlyRate: lesson.HourlyRate.String(),
		CreatedAt:  lesson.CreatedAt,
		UpdatedAt:  lesson.UpdatedAt,
	}
}

// LessonRepository manages persistence for recurring lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = `l.id, l.student_id, l.subject, l.level, l.weekday, l.start_time, l.end_time, l.hourly_rate,
        s.full_name AS student_name, l.created_at, l.updated_at`

// ListByStudent returns a student's lessons in insertion order.
func (r *LessonRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons l JOIN students s ON s.id = l.student_id
        WHERE l.student_id = $1 ORDER BY l.created_at ASC, l.id ASC`, lessonColumns)
	var rows []lessonRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	lessons := make([]models.Lesson, 0, len(rows))
	for _, row := range rows {
		lesson, err := row.toModel()
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lesson)
	}
	return lessons, nil
}

// FindByID fetches one lesson by ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons l JOIN students s ON s.id = l.student_id WHERE l.id = $1`, lessonColumns)
	var row lessonRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	lesson, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Create inserts a new lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
	row := fromLessonModel(*lesson)
	const query = `INSERT INTO lessons (id, student_id, subject, level, weekday, start_time, end_time, hourly_rate, created_at, updated_at)
        VALUES (:id, :student_id, :subject, :level, :weekday, :start_time, :end_time, :hourly_rate, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// BulkCreate inserts several lessons in one transaction.
func (r *LessonRepository) BulkCreate(ctx context.Context, lessons []models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO lessons (id, student_id, subject, level, weekday, start_time, end_time, hourly_rate, created_at, updated_at)
        VALUES (:id, :student_id, :subject, :level, :weekday, :start_time, :end_time, :hourly_rate, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range lessons {
		if lessons[i].ID == "" {
			lessons[i].ID = uuid.NewString()
		}
		if lessons[i].CreatedAt.IsZero() {
			lessons[i].CreatedAt = now
		}
		lessons[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, fromLessonModel(lessons[i])); err != nil {
			return fmt.Errorf("bulk create lesson: %w", err)
		}
	}
	return tx.Commit()
}

// Update rewrites an existing lesson in full.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	row := fromLessonModel(*lesson)
	const query = `UPDATE lessons SET subject = :subject, level = :level, weekday = :weekday, start_time = :start_time,
        end_time = :end_time, hourly_rate = :hourly_rate, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson by ID.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lessons WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}
