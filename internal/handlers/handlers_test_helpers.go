package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"splitbook/internal/auth"
	"splitbook/internal/config"
	"splitbook/internal/services"
	"splitbook/internal/store"
	"splitbook/internal/websocket"
)

const testSecret = "test-secret"

type stubOnboarding struct {
	registerFn     func(ctx context.Context, req services.RegisterRequest) (services.RegisterResult, error)
	verifyEmailFn  func(ctx context.Context, accountID, code string) (services.VerifyResult, error)
	resendCodeFn   func(ctx context.Context, accountID string) error
	loginFn        func(ctx context.Context, email, password string) (string, error)
	inviteOrLinkFn func(ctx context.Context, inviterID, inviteeEmail string, inviteeName *string) (services.InviteOutcome, error)
}

func (s stubOnboarding) Register(ctx context.Context, req services.RegisterRequest) (services.RegisterResult, error) {
	if s.registerFn == nil {
		return services.RegisterResult{AccountID: "acc-1"}, nil
	}
	return s.registerFn(ctx, req)
}

func (s stubOnboarding) VerifyEmail(ctx context.Context, accountID, code string) (services.VerifyResult, error) {
	if s.verifyEmailFn == nil {
		return services.VerifyResult{Verified: true}, nil
	}
	return s.verifyEmailFn(ctx, accountID, code)
}

func (s stubOnboarding) ResendCode(ctx context.Context, accountID string) error {
	if s.resendCodeFn == nil {
		return nil
	}
	return s.resendCodeFn(ctx, accountID)
}

func (s stubOnboarding) Login(ctx context.Context, email, password string) (string, error) {
	if s.loginFn == nil {
		return "acc-1", nil
	}
	return s.loginFn(ctx, email, password)
}

func (s stubOnboarding) InviteOrLink(ctx context.Context, inviterID, inviteeEmail string, inviteeName *string) (services.InviteOutcome, error) {
	if s.inviteOrLinkFn == nil {
		return services.InviteOutcome{InvitationIssued: true, Token: "tok-1"}, nil
	}
	return s.inviteOrLinkFn(ctx, inviterID, inviteeEmail, inviteeName)
}

type stubFriendships struct {
	areFriendsFn  func(ctx context.Context, a, b string) (bool, error)
	listFriendsFn func(ctx context.Context, accountID string) ([]store.Friend, error)
}

func (s stubFriendships) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if s.areFriendsFn == nil {
		return true, nil
	}
	return s.areFriendsFn(ctx, a, b)
}

func (s stubFriendships) ListFriends(ctx context.Context, accountID string) ([]store.Friend, error) {
	if s.listFriendsFn == nil {
		return nil, nil
	}
	return s.listFriendsFn(ctx, accountID)
}

type stubLedger struct {
	recordExpenseFn func(ctx context.Context, req services.RecordExpenseRequest) (string, error)
	listBetweenFn   func(ctx context.Context, a, b string) ([]store.Expense, error)
	balanceFn       func(ctx context.Context, observer, counterparty string) (int64, error)
}

func (s stubLedger) RecordExpense(ctx context.Context, req services.RecordExpenseRequest) (string, error) {
	if s.recordExpenseFn == nil {
		return "exp-1", nil
	}
	return s.recordExpenseFn(ctx, req)
}

func (s stubLedger) ListBetween(ctx context.Context, a, b string) ([]store.Expense, error) {
	if s.listBetweenFn == nil {
		return nil, nil
	}
	return s.listBetweenFn(ctx, a, b)
}

func (s stubLedger) Balance(ctx context.Context, observer, counterparty string) (int64, error) {
	if s.balanceFn == nil {
		return 0, nil
	}
	return s.balanceFn(ctx, observer, counterparty)
}

type stubAccounts struct {
	getByIDFn func(ctx context.Context, accountID string) (store.Account, error)
}

func (s stubAccounts) GetByID(ctx context.Context, accountID string) (store.Account, error) {
	if s.getByIDFn == nil {
		return store.Account{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, accountID)
}

type handlerDeps struct {
	accounts    AccountStore
	onboarding  OnboardingService
	friendships FriendshipService
	ledger      LedgerService
}

func newTestRouter(t *testing.T, deps handlerDeps) http.Handler {
	t.Helper()
	if deps.accounts == nil {
		deps.accounts = stubAccounts{}
	}
	if deps.onboarding == nil {
		deps.onboarding = stubOnboarding{}
	}
	if deps.friendships == nil {
		deps.friendships = stubFriendships{}
	}
	if deps.ledger == nil {
		deps.ledger = stubLedger{}
	}
	cfg := config.Config{
		JWTSecret:      testSecret,
		TokenTTL:       time.Hour,
		AllowedOrigins: "*",
	}
	handler := New(cfg, deps.accounts, deps.onboarding, deps.friendships, deps.ledger, websocket.NewHub())
	return handler.Routes()
}

func bearerToken(t *testing.T, accountID string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, accountID, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body %q: %v", recorder.Body.String(), err)
	}
	return payload
}
