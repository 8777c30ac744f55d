package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"splitbook/internal/db"
	"splitbook/internal/money"
	"splitbook/internal/store"
	"splitbook/internal/validator"
	"splitbook/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFriends       = errors.New("accounts are not friends")
	ErrInvalidPayer     = errors.New("payer must be one of the participants")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrEmptyDescription = errors.New("description must not be blank")
)

type LedgerExpenseStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.ExpenseInput) error
	ListBetween(ctx context.Context, a, b string) ([]store.Expense, error)
}

type FriendChecker interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

type LedgerAuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type BalanceHub interface {
	BroadcastBalance(accountID string, update websocket.BalanceUpdate)
}

// LedgerService owns the append-only pairwise expense ledger. Records are
// immutable once written; balances are always re-derived from the full
// record history, never stored.
type LedgerService struct {
	txRunner    db.TxRunner
	expenses    LedgerExpenseStore
	friendships FriendChecker
	audit       LedgerAuditStore
	hub         BalanceHub
}

func NewLedgerService(txRunner db.TxRunner, expenses LedgerExpenseStore, friendships FriendChecker, audit LedgerAuditStore, hub BalanceHub) *LedgerService {
	return &LedgerService{
		txRunner:    txRunner,
		expenses:    expenses,
		friendships: friendships,
		audit:       audit,
		hub:         hub,
	}
}

type RecordExpenseRequest struct {
	FirstID     string
	SecondID    string
	PayerID     string
	AmountMinor int64
	Description string
	ExpenseDate time.Time
}

// RecordExpense validates and appends a record between two friends, then
// pushes each party's refreshed balance over the websocket hub.
func (s *LedgerService) RecordExpense(ctx context.Context, req RecordExpenseRequest) (string, error) {
	if req.AmountMinor <= 0 {
		return "", ErrInvalidAmount
	}
	if err := validator.ValidateDescription(req.Description); err != nil {
		return "", ErrEmptyDescription
	}
	if req.PayerID != req.FirstID && req.PayerID != req.SecondID {
		return "", ErrInvalidPayer
	}
	friends, err := s.friendships.AreFriends(ctx, req.FirstID, req.SecondID)
	if err != nil {
		return "", err
	}
	if !friends {
		return "", ErrNotFriends
	}

	expenseID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.expenses.Insert(ctx, tx, store.ExpenseInput{
			ID:          expenseID,
			FirstID:     req.FirstID,
			SecondID:    req.SecondID,
			PayerID:     req.PayerID,
			AmountMinor: req.AmountMinor,
			Description: req.Description,
			ExpenseDate: req.ExpenseDate,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"payer_id": req.PayerID,
			"amount":   money.FormatMinor(req.AmountMinor),
		})
		return s.audit.Log(ctx, tx, req.PayerID, "record_expense", "expense", expenseID, string(data))
	})
	if err != nil {
		return "", err
	}

	if balance, err := s.Balance(ctx, req.FirstID, req.SecondID); err == nil {
		s.hub.BroadcastBalance(req.FirstID, websocket.BalanceUpdate{
			FriendID: req.SecondID,
			Balance:  money.FormatMinor(balance),
		})
		s.hub.BroadcastBalance(req.SecondID, websocket.BalanceUpdate{
			FriendID: req.FirstID,
			Balance:  money.FormatMinor(-balance),
		})
	}
	return expenseID, nil
}

// ListBetween returns the pair's records oldest first.
func (s *LedgerService) ListBetween(ctx context.Context, a, b string) ([]store.Expense, error) {
	return s.expenses.ListBetween(ctx, a, b)
}

// Balance folds the pair's history: records paid by the observer add,
// records paid by the counterparty subtract. Positive means the
// counterparty owes the observer. Integer minor units keep the fold exact,
// so Balance(a, b) == -Balance(b, a) for every history.
func (s *LedgerService) Balance(ctx context.Context, observer, counterparty string) (int64, error) {
	records, err := s.expenses.ListBetween(ctx, observer, counterparty)
	if err != nil {
		return 0, err
	}
	var balance int64
	for _, record := range records {
		switch record.PayerID {
		case observer:
			balance += record.AmountMinor
		case counterparty:
			balance -= record.AmountMinor
		}
	}
	return balance, nil
}
