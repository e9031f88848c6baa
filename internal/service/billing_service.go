package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorbill/tutorbill-api/internal/models"
	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

type billingPaymentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
	ListByMonth(ctx context.Context, month models.Month) ([]models.Payment, error)
	FindByStudentAndMonth(ctx context.Context, studentID string, month models.Month) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
}

type billingStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListActive(ctx context.Context) ([]models.Student, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

type billingLessonRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Lesson, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

func summaryCacheKey(month models.Month) string {
	return fmt.Sprintf("billing:summary:%s", month)
}

// RecordPaymentRequest applies a partial or full payment against one month.
type RecordPaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// LedgerResponse is the per-student billing view: every monthly entry plus the
// status derived from how many of them remain unpaid.
type LedgerResponse struct {
	StudentID string               `json:"student_id"`
	Status    models.PaymentStatus `json:"status"`
	Payments  []models.Payment     `json:"payments"`
}

// BillingService exposes the payment ledger: listing, settlement and the
// cross-student monthly summary.
type BillingService struct {
	payments  billingPaymentRepository
	students  billingStudentRepository
	lessons   billingLessonRepository
	cache     summaryCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	clock     Clock
	cacheTTL  time.Duration
}

// NewBillingService instantiates BillingService.
func NewBillingService(payments billingPaymentRepository, students billingStudentRepository, lessons billingLessonRepository, cache summaryCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, clock Clock, cacheTTL time.Duration) *BillingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &BillingService{payments: payments, students: students, lessons: lessons, cache: cache, metrics: metrics, validator: validate, logger: logger, clock: clock, cacheTTL: cacheTTL}
}

// Ledger returns the student's monthly entries in chronological order along
// with the derived payment status.
func (s *BillingService) Ledger(ctx context.Context, studentID string) (*LedgerResponse, error) {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}
	entries, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger")
	}
	ledger := models.NewLedger(entries)
	return &LedgerResponse{StudentID: studentID, Status: ledger.Status(), Payments: ledger.Payments()}, nil
}

// SettleAll clears every outstanding month for the student in one stroke.
func (s *BillingService) SettleAll(ctx context.Context, studentID string) (*LedgerResponse, error) {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}

	entries, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger")
	}

	ledger := models.NewLedger(entries)
	var settled []models.Month
	for _, entry := range ledger.Payments() {
		if !entry.IsPaid() {
			settled = append(settled, entry.Month)
		}
	}
	if err := ledger.MarkAllPaid(); err != nil {
		return nil, err
	}

	for _, month := range settled {
		payment, ok := ledger.Find(month)
		if !ok {
			continue
		}
		if err := s.payments.Update(ctx, payment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist settlement")
		}
	}

	if err := s.students.UpdatePaymentStatus(ctx, studentID, ledger.Status()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync payment status")
	}
	s.invalidateAllSummaries(ctx)

	return &LedgerResponse{StudentID: studentID, Status: ledger.Status(), Payments: ledger.Payments()}, nil
}

// PayMonth records a payment against a single month. Paying more than the
// month still owes is rejected.
func (s *BillingService) PayMonth(ctx context.Context, studentID, monthRaw string, req RecordPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}

	month, err := models.ParseMonth(monthRaw)
	if err != nil {
		return nil, err
	}
	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.FindByStudentAndMonth(ctx, studentID, month)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no bill for that month")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	if err := payment.RecordPayment(amount); err != nil {
		return nil, err
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	entries, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger")
	}
	if err := s.students.UpdatePaymentStatus(ctx, studentID, models.NewLedger(entries).Status()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync payment status")
	}
	s.invalidateAllSummaries(ctx)

	return payment, nil
}

// MonthlySummary aggregates hours, earnings and outstanding balances across
// all active students for one month. Results are cached briefly since the
// summary backs the dashboard.
func (s *BillingService) MonthlySummary(ctx context.Context, monthRaw string) (*models.MonthlySummary, error) {
	var month models.Month
	if monthRaw == "" {
		month = models.MonthOf(s.clock.Now())
	} else {
		parsed, err := models.ParseMonth(monthRaw)
		if err != nil {
			return nil, err
		}
		month = parsed
	}

	key := summaryCacheKey(month)
	if s.cache != nil {
		start := time.Now()
		var cached models.MonthlySummary
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.recordCacheOp(true, time.Since(start))
			return &cached, nil
		}
		s.recordCacheOp(false, time.Since(start))
		if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("billing summary cache read failed", zap.Error(err))
		}
	}

	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	monthPayments, err := s.payments.ListByMonth(ctx, month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load month payments")
	}
	outstandingByStudent := make(map[string]models.Amount, len(monthPayments))
	for _, p := range monthPayments {
		outstandingByStudent[p.StudentID] = p.Outstanding
	}

	summary := &models.MonthlySummary{Month: month, Rows: make([]models.MonthlySummaryRow, 0, len(students))}
	totalEarnings := models.ZeroAmount()
	totalOutstanding := models.ZeroAmount()

	for _, student := range students {
		lessons, err := s.lessons.ListByStudent(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
		}
		timetable := models.NewTimetable(lessons)

		row := models.MonthlySummaryRow{
			StudentID:   student.ID,
			StudentName: student.FullName,
			Hours:       timetable.HoursInMonth(month),
			Earnings:    timetable.EarningsInMonth(month),
			Outstanding: models.ZeroAmount(),
			Status:      student.PaymentStatus,
		}

		if outstanding, ok := outstandingByStudent[student.ID]; ok {
			row.Outstanding = outstanding
		}

		totalEarnings = totalEarnings.Add(row.Earnings)
		totalOutstanding = totalOutstanding.Add(row.Outstanding)
		summary.TotalHours += row.Hours
		summary.Rows = append(summary.Rows, row)
	}

	summary.TotalEarnings = totalEarnings
	summary.TotalOutstanding = totalOutstanding
	summary.GeneratedAt = s.clock.Now().UTC()

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
			s.logger.Warn("billing summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *BillingService) loadStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *BillingService) invalidateAllSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "billing:summary:*"); err != nil {
		s.logger.Warn("failed to invalidate billing summary cache", zap.Error(err))
	}
}

func (s *BillingService) recordCacheOp(hit bool, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheOperation(hit, elapsed)
}
