package counters

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mandibook/mandibook-backend/internal/repo"
)

// Repository increments named sequences through single-statement upserts so
// concurrent order creation never hands out the same number twice.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(tx)}
}

// Next atomically increments the sequence for key and returns the new value.
func (r *Repository) Next(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("counter key required")
	}

	var sequence int64
	err := r.DB(ctx).Raw(
		`INSERT INTO counters (key, sequence) VALUES (?, 1)
		 ON CONFLICT (key) DO UPDATE SET sequence = counters.sequence + 1
		 RETURNING sequence`,
		key,
	).Scan(&sequence).Error
	if err != nil {
		return 0, fmt.Errorf("increment counter %q: %w", key, err)
	}
	return sequence, nil
}

// NextInTx increments the sequence inside an already-open transaction, so
// a rolled-back caller releases the number with it.
func (r *Repository) NextInTx(ctx context.Context, tx *gorm.DB, key string) (int64, error) {
	if tx == nil {
		return r.Next(ctx, key)
	}
	return r.WithTx(tx).Next(ctx, key)
}

// Seed raises the sequence for key to at least minSequence. Used when
// deploying onto a store that already contains numbered orders; never lowers
// an existing counter.
func (r *Repository) Seed(ctx context.Context, key string, minSequence int64) error {
	if key == "" {
		return fmt.Errorf("counter key required")
	}
	if minSequence < 0 {
		return fmt.Errorf("minSequence must not be negative")
	}

	err := r.DB(ctx).Exec(
		`INSERT INTO counters (key, sequence) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET sequence =
		   CASE WHEN counters.sequence < excluded.sequence THEN excluded.sequence ELSE counters.sequence END`,
		key, minSequence,
	).Error
	if err != nil {
		return fmt.Errorf("seed counter %q: %w", key, err)
	}
	return nil
}

// OrderKey scopes the order counter by year and month, e.g. "order_2608".
func OrderKey(t time.Time) string {
	return fmt.Sprintf("order_%02d%02d", t.Year()%100, int(t.Month()))
}

// FormatOrderNumber renders the public order number, e.g. "ORD26080042".
func FormatOrderNumber(t time.Time, sequence int64) string {
	return fmt.Sprintf("ORD%02d%02d%04d", t.Year()%100, int(t.Month()), sequence)
}
