package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tutorbill/tutorbill-api/internal/models"
	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

type rolloverStudentRepository interface {
	ListActive(ctx context.Context) ([]models.Student, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

type rolloverLessonRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Lesson, error)
}

type rolloverPaymentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
}

type rolloverStateRepository interface {
	GetLastOpenedMonth(ctx context.Context) (models.Month, bool, error)
	SetLastOpenedMonth(ctx context.Context, month models.Month) error
}

// RolloverResult reports what a rollover run did.
type RolloverResult struct {
	From            models.Month `json:"from"`
	To              models.Month `json:"to"`
	MonthsProcessed int          `json:"months_processed"`
	StudentsVisited int          `json:"students_visited"`
	Inserted        int          `json:"inserted"`
	Replaced        int          `json:"replaced"`
	Skipped         int          `json:"skipped"`
}

// RolloverService opens billing months as calendar time advances. It keeps a
// persisted watermark of the last opened month and, on each run, walks every
// month between the watermark and now in ascending order so that no month is
// skipped even after long downtime. Running it twice for the same span is a
// no-op.
type RolloverService struct {
	students rolloverStudentRepository
	lessons  rolloverLessonRepository
	payments rolloverPaymentRepository
	state    rolloverStateRepository
	cache    summaryCacheInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	clock    Clock
}

// NewRolloverService instantiates RolloverService.
func NewRolloverService(students rolloverStudentRepository, lessons rolloverLessonRepository, payments rolloverPaymentRepository, state rolloverStateRepository, cache summaryCacheInvalidator, metrics *MetricsService, logger *zap.Logger, clock Clock) *RolloverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &RolloverService{students: students, lessons: lessons, payments: payments, state: state, cache: cache, metrics: metrics, logger: logger, clock: clock}
}

// Run advances the billing watermark to the current month, opening every
// intervening month for every active student. A clock behind the watermark
// aborts the run before any ledger is touched.
func (s *RolloverService) Run(ctx context.Context) (*RolloverResult, error) {
	now := models.MonthOf(s.clock.Now())

	last, found, err := s.state.GetLastOpenedMonth(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rollover watermark")
	}

	if !found {
		// First ever run: adopt the current month as the watermark. The
		// current month's bills are owned by the live recompute path.
		if err := s.state.SetLastOpenedMonth(ctx, now); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialize rollover watermark")
		}
		s.logger.Info("rollover watermark initialized", zap.String("month", now.String()))
		return &RolloverResult{From: now, To: now}, nil
	}

	if now.Before(last) {
		s.metrics.RecordRolloverRun("clock_regression", 0)
		return nil, appErrors.Clone(appErrors.ErrClockRegression,
			fmt.Sprintf("current month %s is before last opened month %s", now, last))
	}
	if now.Equal(last) {
		s.metrics.RecordRolloverRun("noop", 0)
		return &RolloverResult{From: last, To: now}, nil
	}

	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	result := &RolloverResult{From: last, To: now, StudentsVisited: len(students)}

	for _, student := range students {
		lessons, err := s.lessons.ListByStudent(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
		}
		timetable := models.NewTimetable(lessons)

		entries, err := s.payments.ListByStudent(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger")
		}
		ledger := models.NewLedger(entries)

		for month := last.Next(); !month.After(now); month = month.Next() {
			total := timetable.EarningsInMonth(month)
			if !total.IsPositive() {
				result.Skipped++
				continue
			}

			outcome := ledger.Upsert(month, total)
			entry, ok := ledger.Find(month)
			if !ok {
				continue
			}

			switch outcome {
			case models.UpsertInserted:
				fresh := *entry
				fresh.StudentID = student.ID
				if err := s.payments.Create(ctx, &fresh); err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open billing month")
				}
				entry.ID = fresh.ID
				entry.StudentID = student.ID
				result.Inserted++
			case models.UpsertReplaced:
				if err := s.payments.Update(ctx, entry); err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rebill month")
				}
				result.Replaced++
			default:
				result.Skipped++
			}
		}

		if err := s.students.UpdatePaymentStatus(ctx, student.ID, ledger.Status()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync payment status")
		}
	}

	result.MonthsProcessed = monthsBetween(last, now)

	if err := s.state.SetLastOpenedMonth(ctx, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance rollover watermark")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "billing:summary:*"); err != nil {
			s.logger.Warn("failed to invalidate billing summary cache", zap.Error(err))
		}
	}

	s.metrics.RecordRolloverRun("advanced", result.Inserted)
	s.logger.Info("rollover complete",
		zap.String("from", last.String()),
		zap.String("to", now.String()),
		zap.Int("inserted", result.Inserted),
		zap.Int("replaced", result.Replaced),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func monthsBetween(from, to models.Month) int {
	count := 0
	for m := from.Next(); !m.After(to); m = m.Next() {
		count++
	}
	return count
}
