package models

import (
	"fmt"
	"sort"
	"time"

	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
)

// PaymentStatus is the aggregate state of a student's ledger.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// Payment is one month's charge for one student. Paid state is derived from
// the outstanding balance; there is no separate flag to drift out of sync.
type Payment struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	Month       Month     `json:"month"`
	Total       Amount    `json:"total_amount"`
	Outstanding Amount    `json:"outstanding_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPayment opens a freshly billed, fully unpaid month.
func NewPayment(month Month, total Amount) Payment {
	return Payment{Month: month, Total: total, Outstanding: total}
}

// RehydratePayment rebuilds a payment from persisted state. Older snapshots
// carry a paid flag instead of an outstanding amount; both forms are accepted.
func RehydratePayment(month Month, total Amount, paid *bool, outstanding *Amount) Payment {
	p := Payment{Month: month, Total: total, Outstanding: total}
	switch {
	case outstanding != nil:
		p.Outstanding = *outstanding
	case paid != nil && *paid:
		p.Outstanding = ZeroAmount()
	}
	return p
}

// IsPaid reports whether nothing remains outstanding.
func (p *Payment) IsPaid() bool {
	return p.Outstanding.IsZero()
}

// MarkPaid clears the outstanding balance. Idempotent.
func (p *Payment) MarkPaid() {
	p.Outstanding = ZeroAmount()
}

// ApplyTotal rebills the month at a new total, carrying partial-payment
// history forward through the outstanding delta. Returns true when anything
// changed.
func (p *Payment) ApplyTotal(newTotal Amount) bool {
	if p.Total.Equal(newTotal) {
		return false
	}
	p.Outstanding = RecomputeOutstanding(p.Outstanding, p.Total, newTotal)
	p.Total = newTotal
	return true
}

// RecordPayment reduces the outstanding balance by a partial or full amount.
func (p *Payment) RecordPayment(amount Amount) error {
	if !amount.IsPositive() {
		return appErrors.Clone(appErrors.ErrInvalidRange, "payment amount must be positive")
	}
	if amount.Cmp(p.Outstanding) > 0 {
		return appErrors.Clone(appErrors.ErrInvalidRange, fmt.Sprintf("payment %s exceeds outstanding %s", amount, p.Outstanding))
	}
	p.Outstanding = RecomputeOutstanding(p.Outstanding, amount, ZeroAmount())
	return nil
}

// SameBill compares month and billed total, ignoring payment progress.
func (p Payment) SameBill(other Payment) bool {
	return p.Month.Equal(other.Month) && p.Total.Equal(other.Total)
}

// UpsertOutcome describes how the ledger resolved an upsert.
type UpsertOutcome string

const (
	UpsertInserted         UpsertOutcome = "inserted"
	UpsertReplaced         UpsertOutcome = "replaced"
	UpsertSkippedPaid      UpsertOutcome = "skipped_paid"
	UpsertSkippedUnchanged UpsertOutcome = "skipped_unchanged"
)

// Ledger is one student's monthly payments, sorted by month ascending with at
// most one entry per month.
type Ledger struct {
	entries []Payment
}

// NewLedger builds a ledger from persisted payments, restoring month order.
func NewLedger(payments []Payment) *Ledger {
	copied := make([]Payment, len(payments))
	copy(copied, payments)
	l := &Ledger{entries: copied}
	l.sortEntries()
	return l
}

func (l *Ledger) sortEntries() {
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].Month.Before(l.entries[j].Month)
	})
}

// Len returns the number of ledger entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Payments returns a copy of the entries in month order.
func (l *Ledger) Payments() []Payment {
	copied := make([]Payment, len(l.entries))
	copy(copied, l.entries)
	return copied
}

// Find returns a mutable reference to the entry for the given month.
func (l *Ledger) Find(month Month) (*Payment, bool) {
	for i := range l.entries {
		if l.entries[i].Month.Equal(month) {
			return &l.entries[i], true
		}
	}
	return nil, false
}

// Status derives the aggregate state from the count of unpaid months: none
// paid up, exactly one unpaid, more than one overdue.
func (l *Ledger) Status() PaymentStatus {
	unpaid := 0
	for i := range l.entries {
		if !l.entries[i].IsPaid() {
			unpaid++
		}
	}
	switch {
	case unpaid == 0:
		return PaymentStatusPaid
	case unpaid == 1:
		return PaymentStatusUnpaid
	default:
		return PaymentStatusOverdue
	}
}

// AddIfAbsent inserts the payment unless its month is already present.
// Returns true when the insert happened.
func (l *Ledger) AddIfAbsent(payment Payment) bool {
	if _, ok := l.Find(payment.Month); ok {
		return false
	}
	l.entries = append(l.entries, payment)
	l.sortEntries()
	return true
}

// Upsert reconciles one month against a freshly computed total. Paid months
// are never rewritten; unpaid months are rebilled only when the total moved.
func (l *Ledger) Upsert(month Month, newTotal Amount) UpsertOutcome {
	existing, ok := l.Find(month)
	if !ok {
		l.AddIfAbsent(NewPayment(month, newTotal))
		return UpsertInserted
	}
	if existing.IsPaid() {
		return UpsertSkippedPaid
	}
	if existing.Total.Equal(newTotal) {
		return UpsertSkippedUnchanged
	}
	existing.ApplyTotal(newTotal)
	return UpsertReplaced
}

// MarkAllPaid settles every unpaid entry. Fails when nothing is outstanding.
func (l *Ledger) MarkAllPaid() error {
	settled := false
	for i := range l.entries {
		if !l.entries[i].IsPaid() {
			l.entries[i].MarkPaid()
			settled = true
		}
	}
	if !settled {
		return appErrors.Clone(appErrors.ErrAlreadySettled, "all payments are already settled")
	}
	return nil
}
