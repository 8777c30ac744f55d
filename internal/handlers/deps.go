package handlers

import (
	"context"

	"splitbook/internal/services"
	"splitbook/internal/store"
)

type OnboardingService interface {
	Register(ctx context.Context, req services.RegisterRequest) (services.RegisterResult, error)
	VerifyEmail(ctx context.Context, accountID, code string) (services.VerifyResult, error)
	ResendCode(ctx context.Context, accountID string) error
	Login(ctx context.Context, email, password string) (string, error)
	InviteOrLink(ctx context.Context, inviterID, inviteeEmail string, inviteeName *string) (services.InviteOutcome, error)
}

type FriendshipService interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
	ListFriends(ctx context.Context, accountID string) ([]store.Friend, error)
}

type LedgerService interface {
	RecordExpense(ctx context.Context, req services.RecordExpenseRequest) (string, error)
	ListBetween(ctx context.Context, a, b string) ([]store.Expense, error)
	Balance(ctx context.Context, observer, counterparty string) (int64, error)
}

type AccountStore interface {
	GetByID(ctx context.Context, accountID string) (store.Account, error)
}
