package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tutorbill/tutorbill-api/internal/models"
)

const lastOpenedMonthKey = "last_opened_month"

// AppStateRepository persists small key/value application state, notably the
// last month the billing rollover was opened for.
type AppStateRepository struct {
	db *sqlx.DB
}

// NewAppStateRepository constructs an AppStateRepository.
func NewAppStateRepository(db *sqlx.DB) *AppStateRepository {
	return &AppStateRepository{db: db}
}

// GetLastOpenedMonth returns the persisted rollover watermark. The boolean is
// false when no rollover has ever run.
func (r *AppStateRepository) GetLastOpenedMonth(ctx context.Context) (models.Month, bool, error) {
	const query = `SELECT value FROM app_state WHERE key = $1`
	var raw string
	if err := r.db.GetContext(ctx, &raw, query, lastOpenedMonthKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Month{}, false, nil
		}
		return models.Month{}, false, fmt.Errorf("load last opened month: %w", err)
	}
	month, err := models.ParseMonth(raw)
	if err != nil {
		return models.Month{}, false, fmt.Errorf("load last opened month: %w", err)
	}
	return month, true, nil
}

// SetLastOpenedMonth stores the rollover watermark.
func (r *AppStateRepository) SetLastOpenedMonth(ctx context.Context, month models.Month) error {
	const query = `INSERT INTO app_state (key, value, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, lastOpenedMonthKey, month.String(), time.Now().UTC()); err != nil {
		return fmt.Errorf("store last opened month: %w", err)
	}
	return nil
}
