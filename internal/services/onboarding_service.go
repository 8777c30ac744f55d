package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"splitbook/internal/auth"
	"splitbook/internal/db"
	"splitbook/internal/notify"
	"splitbook/internal/store"
	"splitbook/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrSelfInvite         = errors.New("cannot invite yourself")
)

// Warnings attached to otherwise-successful operations. A bad invitation
// token never blocks registration; a failed deferred friendship never
// reverts verification.
const (
	WarnInvitationNotFound      = "invitation_not_found"
	WarnInvitationExpired       = "invitation_expired"
	WarnInvitationAlreadyUsed   = "invitation_already_used"
	WarnInvitationEmailMismatch = "invitation_email_mismatch"
	WarnFriendshipNotCreated    = "friendship_not_created"
)

type OnboardingAccountStore interface {
	Create(ctx context.Context, tx store.Execer, id, email string, name *string, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (store.Account, error)
	GetByID(ctx context.Context, accountID string) (store.Account, error)
}

type OnboardingInvitationStore interface {
	Create(ctx context.Context, tx store.Execer, token, inviterID, inviteeEmail string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (store.Invitation, error)
	FindPending(ctx context.Context, inviterID, inviteeEmail string) (store.Invitation, error)
	Accept(ctx context.Context, tx store.Execer, token string) (int64, error)
}

type OnboardingPendingLinkStore interface {
	Create(ctx context.Context, tx store.Execer, accountID, inviterID string) error
	GetInviter(ctx context.Context, accountID string) (string, error)
	Delete(ctx context.Context, tx store.Execer, accountID string) error
}

type Verifier interface {
	PrepareCode(ctx context.Context, tx store.Execer, accountID string) (string, error)
	Deliver(email, code string)
	VerifyCode(ctx context.Context, accountID, code string) error
	ReissueCode(ctx context.Context, accountID string) error
}

type Linker interface {
	CreateBidirectional(ctx context.Context, a, b string) error
}

type OnboardingAuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

// OnboardingService sequences registration, email verification, and
// invitation-linked friendship creation. Accounts move Unregistered ->
// PendingVerification -> Verified; Verified is terminal.
type OnboardingService struct {
	txRunner          db.TxRunner
	accounts          OnboardingAccountStore
	invitations       OnboardingInvitationStore
	pendingLinks      OnboardingPendingLinkStore
	verifier          Verifier
	friendships       Linker
	audit             OnboardingAuditStore
	notifier          notify.Notifier
	inviteTTL         time.Duration
	minPasswordLength int
	appBaseURL        string
}

func NewOnboardingService(
	txRunner db.TxRunner,
	accounts OnboardingAccountStore,
	invitations OnboardingInvitationStore,
	pendingLinks OnboardingPendingLinkStore,
	verifier Verifier,
	friendships Linker,
	audit OnboardingAuditStore,
	notifier notify.Notifier,
	inviteTTL time.Duration,
	minPasswordLength int,
	appBaseURL string,
) *OnboardingService {
	return &OnboardingService{
		txRunner:          txRunner,
		accounts:          accounts,
		invitations:       invitations,
		pendingLinks:      pendingLinks,
		verifier:          verifier,
		friendships:       friendships,
		audit:             audit,
		notifier:          notifier,
		inviteTTL:         inviteTTL,
		minPasswordLength: minPasswordLength,
		appBaseURL:        appBaseURL,
	}
}

type RegisterRequest struct {
	Email           string
	Password        string
	Name            *string
	InvitationToken string
}

type RegisterResult struct {
	AccountID string
	Warning   string
}

// Register creates an unverified account and issues its first verification
// code in one transaction. A supplied invitation token is consumed in the
// same transaction; any token failure degrades to a warning so that an
// invalid or expired invitation never blocks account creation.
func (s *OnboardingService) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	email := validator.NormalizeEmail(req.Email)
	if err := validator.ValidateEmail(email); err != nil {
		return RegisterResult{}, err
	}
	if err := validator.ValidatePassword(req.Password, s.minPasswordLength); err != nil {
		return RegisterResult{}, err
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return RegisterResult{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return RegisterResult{}, err
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	result := RegisterResult{AccountID: uuid.NewString()}
	var code string
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Create(ctx, tx, result.AccountID, email, req.Name, passwordHash); err != nil {
			return err
		}
		if req.InvitationToken != "" {
			result.Warning = s.consumeInvitation(ctx, tx, req.InvitationToken, email, result.AccountID)
		}
		code, err = s.verifier.PrepareCode(ctx, tx, result.AccountID)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"email": email})
		return s.audit.Log(ctx, tx, result.AccountID, "register", "account", result.AccountID, string(data))
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return RegisterResult{}, ErrEmailTaken
		}
		return RegisterResult{}, err
	}
	s.verifier.Deliver(email, code)
	return result, nil
}

// consumeInvitation accepts the token and schedules the deferred friendship.
// It only ever returns a warning string: token problems are non-fatal to the
// surrounding registration.
func (s *OnboardingService) consumeInvitation(ctx context.Context, tx *sqlx.Tx, token, email, accountID string) string {
	invitation, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return WarnInvitationNotFound
	}
	if invitation.Status == "accepted" {
		return WarnInvitationAlreadyUsed
	}
	if time.Now().After(invitation.ExpiresAt) {
		return WarnInvitationExpired
	}
	if invitation.InviteeEmail != email {
		return WarnInvitationEmailMismatch
	}
	accepted, err := s.invitations.Accept(ctx, tx, token)
	if err != nil || accepted == 0 {
		return WarnInvitationAlreadyUsed
	}
	if err := s.pendingLinks.Create(ctx, tx, accountID, invitation.InviterID); err != nil {
		return WarnFriendshipNotCreated
	}
	return ""
}

type VerifyResult struct {
	Verified bool
	Warning  string
}

// VerifyEmail consumes the submitted code and, when a deferred link from an
// invitation is waiting, creates the friendship with the inviter. A failed
// friendship write leaves the pending link in place for retry and surfaces
// as a warning; the verification itself stands.
func (s *OnboardingService) VerifyEmail(ctx context.Context, accountID, code string) (VerifyResult, error) {
	if err := s.verifier.VerifyCode(ctx, accountID, code); err != nil {
		return VerifyResult{}, err
	}
	result := VerifyResult{Verified: true}
	inviterID, err := s.pendingLinks.GetInviter(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		result.Warning = WarnFriendshipNotCreated
		return result, nil
	}
	if err := s.friendships.CreateBidirectional(ctx, accountID, inviterID); err != nil {
		result.Warning = WarnFriendshipNotCreated
		return result, nil
	}
	_ = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.pendingLinks.Delete(ctx, tx, accountID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"friend_id": inviterID})
		return s.audit.Log(ctx, tx, accountID, "friend_link", "account", inviterID, string(data))
	})
	return result, nil
}

// ResendCode reissues a verification code, superseding the previous one.
func (s *OnboardingService) ResendCode(ctx context.Context, accountID string) error {
	return s.verifier.ReissueCode(ctx, accountID)
}

// Login authenticates a verified account. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *OnboardingService) Login(ctx context.Context, email, password string) (string, error) {
	account, err := s.accounts.GetByEmail(ctx, validator.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !auth.CheckPassword(account.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	if !account.Verified {
		return "", ErrNotVerified
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.audit.Log(ctx, tx, account.ID, "login", "account", account.ID, "{}")
	})
	if err != nil {
		return "", err
	}
	return account.ID, nil
}

type InviteOutcome struct {
	FriendExists      bool
	FriendshipCreated bool
	InvitationIssued  bool
	Token             string
}

// InviteOrLink either links the inviter with an existing verified account
// immediately, or issues (or reuses) a single-use invitation bound to the
// invitee email. Repeated invites to the same address reuse the pending
// token instead of minting a new one.
func (s *OnboardingService) InviteOrLink(ctx context.Context, inviterID, inviteeEmail string, inviteeName *string) (InviteOutcome, error) {
	inviter, err := s.accounts.GetByID(ctx, inviterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return InviteOutcome{}, ErrNotFound
		}
		return InviteOutcome{}, err
	}
	email := validator.NormalizeEmail(inviteeEmail)
	if err := validator.ValidateEmail(email); err != nil {
		return InviteOutcome{}, err
	}
	if email == inviter.Email {
		return InviteOutcome{}, ErrSelfInvite
	}

	invitee, err := s.accounts.GetByEmail(ctx, email)
	if err == nil && invitee.Verified {
		if err := s.friendships.CreateBidirectional(ctx, inviterID, invitee.ID); err != nil {
			return InviteOutcome{}, err
		}
		err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			data, _ := json.Marshal(map[string]string{"friend_id": invitee.ID})
			return s.audit.Log(ctx, tx, inviterID, "friend_link", "account", invitee.ID, string(data))
		})
		if err != nil {
			return InviteOutcome{}, err
		}
		return InviteOutcome{FriendExists: true, FriendshipCreated: true}, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return InviteOutcome{}, err
	}

	outcome := InviteOutcome{InvitationIssued: true}
	existing, err := s.invitations.FindPending(ctx, inviterID, email)
	if err == nil {
		outcome.Token = existing.Token
	} else if errors.Is(err, sql.ErrNoRows) {
		outcome.Token = uuid.NewString()
		expiresAt := time.Now().Add(s.inviteTTL)
		err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := s.invitations.Create(ctx, tx, outcome.Token, inviterID, email, expiresAt); err != nil {
				return err
			}
			data, _ := json.Marshal(map[string]string{"invitee_email": email})
			return s.audit.Log(ctx, tx, inviterID, "invite", "invitation", outcome.Token, string(data))
		})
		if err != nil {
			return InviteOutcome{}, err
		}
	} else {
		return InviteOutcome{}, err
	}

	s.dispatchInvitation(inviter, email, inviteeName, outcome.Token)
	return outcome, nil
}

func (s *OnboardingService) dispatchInvitation(inviter store.Account, email string, name *string, token string) {
	inviterName := inviter.Email
	if inviter.Name != nil && *inviter.Name != "" {
		inviterName = *inviter.Name
	}
	greeting := "Hi"
	if name != nil && *name != "" {
		greeting = "Hi " + *name
	}
	link := s.appBaseURL + "/register?invite=" + token
	body := greeting + ", " + inviterName + " wants to split expenses with you on Splitbook. Sign up here: " + link
	notify.Dispatch(s.notifier, email, inviterName+" invited you to Splitbook", body)
}
