package models

import "time"

// Student represents a tutored student stored in the students table.
type Student struct {
	ID            string        `db:"id" json:"id"`
	FullName      string        `db:"full_name" json:"full_name"`
	Phone         string        `db:"phone" json:"phone"`
	Email         string        `db:"email" json:"email"`
	Address       string        `db:"address" json:"address"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	Active        bool          `db:"active" json:"active"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	Search    string
	Status    *PaymentStatus
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail joins a student with their schedule and ledger projections.
type StudentDetail struct {
	Student
	LessonCount       int    `json:"lesson_count"`
	CurrentMonthTotal Amount `json:"current_month_total"`
	OutstandingTotal  Amount `json:"outstanding_total"`
}

// MonthlySummaryRow is one student's projection for a billing month.
type MonthlySummaryRow struct {
	StudentID   string        `json:"student_id"`
	StudentName string        `json:"student_name"`
	Hours       int           `json:"hours"`
	Earnings    Amount        `json:"earnings"`
	Outstanding Amount        `json:"outstanding"`
	Status      PaymentStatus `json:"status"`
}

// MonthlySummary aggregates every student's billing for one month.
type MonthlySummary struct {
	Month            Month               `json:"month"`
	Rows             []MonthlySummaryRow `json:"rows"`
	TotalHours       int                 `json:"total_hours"`
	TotalEarnings    Amount              `json:"total_earnings"`
	TotalOutstanding Amount              `json:"total_outstanding"`
	GeneratedAt      time.Time           `json:"generated_at"`
}
