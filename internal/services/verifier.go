package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"splitbook/internal/db"
	"splitbook/internal/notify"
	"splitbook/internal/store"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound             = errors.New("account not found")
	ErrInvalidOrExpiredCode = errors.New("code invalid or expired")
	ErrAlreadyVerified      = errors.New("account already verified")
)

const codeDigits = 6

type VerifierAccountStore interface {
	GetByID(ctx context.Context, accountID string) (store.Account, error)
	MarkVerified(ctx context.Context, tx store.Execer, accountID string) (int64, error)
}

type VerifierCodeStore interface {
	Upsert(ctx context.Context, tx store.Execer, accountID, code string, expiresAt time.Time) error
	Consume(ctx context.Context, tx store.Execer, accountID, code string) (int64, error)
}

// CodeVerifier issues and checks one-time verification codes. A code is
// single-use and superseded whenever a new one is issued, so at any moment
// at most one code can verify an account.
type CodeVerifier struct {
	txRunner db.TxRunner
	accounts VerifierAccountStore
	codes    VerifierCodeStore
	notifier notify.Notifier
	ttl      time.Duration
}

func NewCodeVerifier(txRunner db.TxRunner, accounts VerifierAccountStore, codes VerifierCodeStore, notifier notify.Notifier, ttl time.Duration) *CodeVerifier {
	return &CodeVerifier{
		txRunner: txRunner,
		accounts: accounts,
		codes:    codes,
		notifier: notifier,
		ttl:      ttl,
	}
}

// PrepareCode generates a fresh code and stores it within the caller's
// transaction, superseding any previous code. Delivery is the caller's
// responsibility once the transaction has committed.
func (v *CodeVerifier) PrepareCode(ctx context.Context, tx store.Execer, accountID string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := v.codes.Upsert(ctx, tx, accountID, code, time.Now().Add(v.ttl)); err != nil {
		return "", err
	}
	return code, nil
}

// Deliver dispatches the code fire-and-forget. A delivery failure is logged
// by the notifier layer and never observed by the caller.
func (v *CodeVerifier) Deliver(email, code string) {
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(v.ttl.Minutes()))
	notify.Dispatch(v.notifier, email, "Verify your email", body)
}

// IssueCode stores and dispatches a new code for an account in its own
// transaction.
func (v *CodeVerifier) IssueCode(ctx context.Context, accountID string) (string, error) {
	account, err := v.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	var code string
	err = v.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		code, err = v.PrepareCode(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return "", err
	}
	v.Deliver(account.Email, code)
	return code, nil
}

// VerifyCode consumes a matching, unexpired code and marks the account
// verified in one transaction. The conditional delete decides the outcome:
// a mismatched, expired, superseded, or already-consumed code affects zero
// rows and reports ErrInvalidOrExpiredCode, so retries with a spent code
// can never succeed twice.
func (v *CodeVerifier) VerifyCode(ctx context.Context, accountID, code string) error {
	if _, err := v.accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return v.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		consumed, err := v.codes.Consume(ctx, tx, accountID, code)
		if err != nil {
			return err
		}
		if consumed == 0 {
			return ErrInvalidOrExpiredCode
		}
		_, err = v.accounts.MarkVerified(ctx, tx, accountID)
		return err
	})
}

// ReissueCode behaves like IssueCode but refuses verified accounts.
func (v *CodeVerifier) ReissueCode(ctx context.Context, accountID string) error {
	account, err := v.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if account.Verified {
		return ErrAlreadyVerified
	}
	var code string
	err = v.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		code, err = v.PrepareCode(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return err
	}
	v.Deliver(account.Email, code)
	return nil
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
