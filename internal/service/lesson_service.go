package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorbill/tutorbill-api/internal/models"
	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

type lessonRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	BulkCreate(ctx context.Context, lessons []models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

type lessonPaymentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
	FindByStudentAndMonth(ctx context.Context, studentID string, month models.Month) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
}

type lessonStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

type summaryCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// LessonSlotRequest describes one recurring weekly slot.
type LessonSlotRequest struct {
	Subject    string `json:"subject" validate:"required"`
	Level      string `json:"level" validate:"required"`
	Day        string `json:"day" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	HourlyRate string `json:"hourly_rate" validate:"required"`
}

// BulkRestoreLessonsRequest restores a whole schedule in one batch. Billing
// recompute is deferred until every slot is applied.
type BulkRestoreLessonsRequest struct {
	Items []LessonSlotRequest `json:"items" validate:"required,min=1,dive"`
}

// LessonService manages a student's recurring weekly schedule. Every schedule
// mutation synchronously recomputes the student's current-month bill, so
// displayed totals never go stale between rollovers.
type LessonService struct {
	lessons   lessonRepository
	payments  lessonPaymentRepository
	students  lessonStudentRepository
	cache     summaryCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	clock     Clock
}

// NewLessonService instantiates LessonService.
func NewLessonService(lessons lessonRepository, payments lessonPaymentRepository, students lessonStudentRepository, cache summaryCacheInvalidator, validate *validator.Validate, logger *zap.Logger, clock Clock) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &LessonService{lessons: lessons, payments: payments, students: students, cache: cache, validator: validate, logger: logger, clock: clock}
}

// ListByStudent returns the student's schedule in insertion order.
func (s *LessonService) ListByStudent(ctx context.Context, studentID string) ([]models.Lesson, error) {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// Add validates a new slot against the schedule and bills it into the current
// month before returning.
func (s *LessonService) Add(ctx context.Context, studentID string, req LessonSlotRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	lesson, err := s.parseSlot(student, req)
	if err != nil {
		return nil, err
	}

	existing, err := s.lessons.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	timetable := models.NewTimetable(existing)
	if err := timetable.Add(lesson); err != nil {
		return nil, err
	}

	if err := s.lessons.Create(ctx, &lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}

	if err := s.refreshCurrentMonth(ctx, student.ID); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Update replaces one slot in full; edit is construct-new plus rebind.
func (s *LessonService) Update(ctx context.Context, studentID, lessonID string, req LessonSlotRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	target, err := s.loadLesson(ctx, studentID, lessonID)
	if err != nil {
		return nil, err
	}

	replacement, err := s.parseSlot(student, req)
	if err != nil {
		return nil, err
	}
	replacement.ID = target.ID
	replacement.CreatedAt = target.CreatedAt

	existing, err := s.lessons.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	timetable := models.NewTimetable(existing)
	if err := timetable.Replace(*target, replacement); err != nil {
		return nil, err
	}

	if err := s.lessons.Update(ctx, &replacement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}

	if err := s.refreshCurrentMonth(ctx, student.ID); err != nil {
		return nil, err
	}
	return &replacement, nil
}

// Delete removes one slot and rebills the current month.
func (s *LessonService) Delete(ctx context.Context, studentID, lessonID string) error {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return err
	}
	if _, err := s.loadLesson(ctx, studentID, lessonID); err != nil {
		return err
	}

	if err := s.lessons.Delete(ctx, lessonID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}

	return s.refreshCurrentMonth(ctx, studentID)
}

// BulkRestore applies a whole schedule in one pass with recompute deferred to
// a single refresh at the end, so restoring n lessons does not recompute the
// ledger n times.
func (s *LessonService) BulkRestore(ctx context.Context, studentID string, req BulkRestoreLessonsRequest) ([]models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk lesson payload")
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.lessons.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	timetable := models.NewTimetable(existing)
	toCreate := make([]models.Lesson, 0, len(req.Items))
	for _, item := range req.Items {
		lesson, err := s.parseSlot(student, item)
		if err != nil {
			return nil, err
		}
		if err := timetable.Add(lesson); err != nil {
			return nil, err
		}
		toCreate = append(toCreate, lesson)
	}

	if err := s.lessons.BulkCreate(ctx, toCreate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore lessons")
	}

	if err := s.refreshCurrentMonth(ctx, student.ID); err != nil {
		return nil, err
	}
	return toCreate, nil
}

// RefreshCurrentMonth recomputes the student's current-month bill on demand,
// for callers that mutated the schedule outside the usual paths.
func (s *LessonService) RefreshCurrentMonth(ctx context.Context, studentID string) error {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return err
	}
	return s.refreshCurrentMonth(ctx, studentID)
}

func (s *LessonService) loadStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *LessonService) loadLesson(ctx context.Context, studentID, lessonID string) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if lesson.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	return lesson, nil
}

func (s *LessonService) parseSlot(student *models.Student, req LessonSlotRequest) (models.Lesson, error) {
	subject, err := models.ParseSubject(req.Subject)
	if err != nil {
		return models.Lesson{}, err
	}
	level, err := models.ParseLevel(req.Level)
	if err != nil {
		return models.Lesson{}, err
	}
	weekday, err := models.ParseWeekday(req.Day)
	if err != nil {
		return models.Lesson{}, err
	}
	interval, err := models.ParseLessonInterval(req.StartTime, req.EndTime)
	if err != nil {
		return models.Lesson{}, err
	}
	rate, err := models.ParseAmount(req.HourlyRate)
	if err != nil {
		return models.Lesson{}, err
	}
	return models.Lesson{
		StudentID:   student.ID,
		Subject:     subject,
		Level:       level,
		Weekday:     weekday,
		Interval:    interval,
		HourlyRate:  rate,
		StudentName: student.FullName,
	}, nil
}

// refreshCurrentMonth projects the (possibly just mutated) schedule onto the
// current month and reconciles the ledger entry before the mutating call
// returns. A month with no billable activity is never opened.
func (s *LessonService) refreshCurrentMonth(ctx context.Context, studentID string) error {
	current := models.MonthOf(s.clock.Now())

	lessons, err := s.lessons.ListByStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	newTotal := models.NewTimetable(lessons).EarningsInMonth(current)

	payment, err := s.payments.FindByStudentAndMonth(ctx, studentID, current)
	switch {
	case err == nil:
		if payment.ApplyTotal(newTotal) {
			if err := s.payments.Update(ctx, payment); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update current month payment")
			}
		}
	case errors.Is(err, sql.ErrNoRows):
		if !newTotal.IsPositive() {
			break
		}
		fresh := models.NewPayment(current, newTotal)
		fresh.StudentID = studentID
		if err := s.payments.Create(ctx, &fresh); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open current month payment")
		}
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current month payment")
	}

	if err := s.syncStudentStatus(ctx, studentID); err != nil {
		return err
	}
	s.invalidateSummaries(ctx, current)
	return nil
}

func (s *LessonService) syncStudentStatus(ctx context.Context, studentID string) error {
	payments, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger")
	}
	status := models.NewLedger(payments).Status()
	if err := s.students.UpdatePaymentStatus(ctx, studentID, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync payment status")
	}
	return nil
}

func (s *LessonService) invalidateSummaries(ctx context.Context, month models.Month) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, summaryCacheKey(month)); err != nil {
		s.logger.Warn("failed to invalidate billing summary cache", zap.Error(err))
	}
}
