package store

import (
	"context"
	"time"
)

type ExpenseStore struct {
	db DB
}

func NewExpenseStore(db DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

type Expense struct {
	ID          string    `db:"id"`
	FirstID     string    `db:"first_id"`
	SecondID    string    `db:"second_id"`
	PayerID     string    `db:"payer_id"`
	AmountMinor int64     `db:"amount_minor"`
	Description string    `db:"description"`
	ExpenseDate time.Time `db:"expense_date"`
	CreatedAt   time.Time `db:"created_at"`
}

type ExpenseInput struct {
	ID          string
	FirstID     string
	SecondID    string
	PayerID     string
	AmountMinor int64
	Description string
	ExpenseDate time.Time
}

// PairKey gives a direction-independent key for a pair of accounts so the
// same rows answer queries from either side.
func PairKey(a, b string) string {
	if a <= b {
		return a + ":" + b
	}
	return b + ":" + a
}

func (s *ExpenseStore) Insert(ctx context.Context, tx Execer, input ExpenseInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO expenses (id, first_id, second_id, pair_key, payer_id, amount_minor, description, expense_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.FirstID, input.SecondID, PairKey(input.FirstID, input.SecondID),
		input.PayerID, input.AmountMinor, input.Description, input.ExpenseDate)
	return err
}

func (s *ExpenseStore) ListBetween(ctx context.Context, a, b string) ([]Expense, error) {
	var rows []Expense
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, first_id, second_id, payer_id, amount_minor, description, expense_date, created_at
		FROM expenses
		WHERE pair_key = $1
		ORDER BY created_at ASC, id ASC
	`, PairKey(a, b))
	if err != nil {
		return nil, err
	}
	return rows, nil
}
