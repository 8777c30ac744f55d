package models

import "time"

type Account struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Name         *string    `db:"name" json:"name,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Verified     bool       `db:"verified" json:"verified"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	VerifiedAt   *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

type VerificationCode struct {
	AccountID string    `db:"account_id" json:"account_id"`
	Code      string    `db:"code" json:"-"`
	IssuedAt  time.Time `db:"issued_at" json:"issued_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

type Invitation struct {
	Token        string     `db:"token" json:"token"`
	InviterID    string     `db:"inviter_id" json:"inviter_id"`
	InviteeEmail string     `db:"invitee_email" json:"invitee_email"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expires_at"`
	AcceptedAt   *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
}

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
)

type Friendship struct {
	AccountID string    `db:"account_id" json:"account_id"`
	FriendID  string    `db:"friend_id" json:"friend_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Expense struct {
	ID          string    `db:"id" json:"id"`
	FirstID     string    `db:"first_id" json:"first_id"`
	SecondID    string    `db:"second_id" json:"second_id"`
	PayerID     string    `db:"payer_id" json:"payer_id"`
	AmountMinor int64     `db:"amount_minor" json:"amount_minor"`
	Description string    `db:"description" json:"description"`
	ExpenseDate time.Time `db:"expense_date" json:"expense_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
