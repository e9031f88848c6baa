package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorbill/tutorbill-api/internal/models"
)

// paymentRow is the flat persisted shape of a monthly payment.
type paymentRow struct {
	ID                string    `db:"id"`
	StudentID         string    `db:"student_id"`
	Month             string    `db:"month"`
	TotalAmount       string    `db:"total_amount"`
	OutstandingAmount string    `db:"outstanding_amount"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (row paymentRow) toModel() (models.Payment, error) {
	month, err := models.ParseMonth(row.Month)
	if err != nil {
		return models.Payment{}, fmt.Errorf("payment %s: %w", row.ID, err)
	}
	total, err := models.ParseAmount(row.TotalAmount)
	if err != nil {
		return models.Payment{}, fmt.Errorf("payment %s: %w", row.ID, err)
	}
	outstanding, err := models.ParseAmount(row.OutstandingAmount)
	if err != nil {
		return models.Payment{}, fmt.Errorf("payment %s: %w", row.ID, err)
	}
	payment := models.RehydratePayment(month, total, nil, &outstanding)
	payment.ID = row.ID
	payment.StudentID = row.StudentID
	payment.CreatedAt = row.CreatedAt
	payment.UpdatedAt = row.UpdatedAt
	return payment, nil
}

func fromPaymentModel(payment models.Payment) paymentRow {
	return paymentRow{
		ID:                payment.ID,
		StudentID:         payment.StudentID,
		Month:             payment.Month.String(),
		TotalAmount:       payment.Total.String(),
		OutstandingAmount: payment.Outstanding.String(),
		CreatedAt:         payment.CreatedAt,
		UpdatedAt:         payment.UpdatedAt,
	}
}

// PaymentRepository manages persistence for monthly payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `p.id, p.student_id, p.month, p.total_amount, p.outstanding_amount, p.created_at, p.updated_at`

// ListByStudent returns a student's payments in month order.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments p WHERE p.student_id = $1 ORDER BY p.month ASC`, paymentColumns)
	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	payments := make([]models.Payment, 0, len(rows))
	for _, row := range rows {
		payment, err := row.toModel()
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

// ListByMonth returns every student's payment for one month.
func (r *PaymentRepository) ListByMonth(ctx context.Context, month models.Month) ([]models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments p WHERE p.month = $1 ORDER BY p.student_id ASC`, paymentColumns)
	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, query, month.String()); err != nil {
		return nil, fmt.Errorf("list payments for month: %w", err)
	}
	payments := make([]models.Payment, 0, len(rows))
	for _, row := range rows {
		payment, err := row.toModel()
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

// FindByStudentAndMonth fetches the single ledger slot for a month.
func (r *PaymentRepository) FindByStudentAndMonth(ctx context.Context, studentID string, month models.Month) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments p WHERE p.student_id = $1 AND p.month = $2`, paymentColumns)
	var row paymentRow
	if err := r.db.GetContext(ctx, &row, query, studentID, month.String()); err != nil {
		return nil, err
	}
	payment, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Create inserts a new payment entry.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	row := fromPaymentModel(*payment)
	const query = `INSERT INTO payments (id, student_id, month, total_amount, outstanding_amount, created_at, updated_at)
        VALUES (:id, :student_id, :month, :total_amount, :outstanding_amount, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// Update rewrites the amounts of an existing payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	row := fromPaymentModel(*payment)
	const query = `UPDATE payments SET total_amount = :total_amount, outstanding_amount = :outstanding_amount, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}
