package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"splitbook/internal/store"
	"splitbook/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubAccountStore struct {
	createFn       func(ctx context.Context, tx store.Execer, id, email string, name *string, passwordHash string) error
	getByEmailFn   func(ctx context.Context, email string) (store.Account, error)
	getByIDFn      func(ctx context.Context, accountID string) (store.Account, error)
	markVerifiedFn func(ctx context.Context, tx store.Execer, accountID string) (int64, error)
}

func (s stubAccountStore) Create(ctx context.Context, tx store.Execer, id, email string, name *string, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, email, name, passwordHash)
}

func (s stubAccountStore) GetByEmail(ctx context.Context, email string) (store.Account, error) {
	if s.getByEmailFn == nil {
		return store.Account{}, sql.ErrNoRows
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubAccountStore) GetByID(ctx context.Context, accountID string) (store.Account, error) {
	if s.getByIDFn == nil {
		return store.Account{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, accountID)
}

func (s stubAccountStore) MarkVerified(ctx context.Context, tx store.Execer, accountID string) (int64, error) {
	if s.markVerifiedFn == nil {
		return 1, nil
	}
	return s.markVerifiedFn(ctx, tx, accountID)
}

type stubCodeStore struct {
	upsertFn  func(ctx context.Context, tx store.Execer, accountID, code string, expiresAt time.Time) error
	consumeFn func(ctx context.Context, tx store.Execer, accountID, code string) (int64, error)
}

func (s stubCodeStore) Upsert(ctx context.Context, tx store.Execer, accountID, code string, expiresAt time.Time) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, accountID, code, expiresAt)
}

func (s stubCodeStore) Consume(ctx context.Context, tx store.Execer, accountID, code string) (int64, error) {
	if s.consumeFn == nil {
		return 1, nil
	}
	return s.consumeFn(ctx, tx, accountID, code)
}

type stubInvitationStore struct {
	createFn      func(ctx context.Context, tx store.Execer, token, inviterID, inviteeEmail string, expiresAt time.Time) error
	getByTokenFn  func(ctx context.Context, token string) (store.Invitation, error)
	findPendingFn func(ctx context.Context, inviterID, inviteeEmail string) (store.Invitation, error)
	acceptFn      func(ctx context.Context, tx store.Execer, token string) (int64, error)
}

func (s stubInvitationStore) Create(ctx context.Context, tx store.Execer, token, inviterID, inviteeEmail string, expiresAt time.Time) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, token, inviterID, inviteeEmail, expiresAt)
}

func (s stubInvitationStore) GetByToken(ctx context.Context, token string) (store.Invitation, error) {
	if s.getByTokenFn == nil {
		return store.Invitation{}, sql.ErrNoRows
	}
	return s.getByTokenFn(ctx, token)
}

func (s stubInvitationStore) FindPending(ctx context.Context, inviterID, inviteeEmail string) (store.Invitation, error) {
	if s.findPendingFn == nil {
		return store.Invitation{}, sql.ErrNoRows
	}
	return s.findPendingFn(ctx, inviterID, inviteeEmail)
}

func (s stubInvitationStore) Accept(ctx context.Context, tx store.Execer, token string) (int64, error) {
	if s.acceptFn == nil {
		return 1, nil
	}
	return s.acceptFn(ctx, tx, token)
}

type stubPendingLinkStore struct {
	createFn     func(ctx context.Context, tx store.Execer, accountID, inviterID string) error
	getInviterFn func(ctx context.Context, accountID string) (string, error)
	deleteFn     func(ctx context.Context, tx store.Execer, accountID string) error
}

func (s stubPendingLinkStore) Create(ctx context.Context, tx store.Execer, accountID, inviterID string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, accountID, inviterID)
}

func (s stubPendingLinkStore) GetInviter(ctx context.Context, accountID string) (string, error) {
	if s.getInviterFn == nil {
		return "", sql.ErrNoRows
	}
	return s.getInviterFn(ctx, accountID)
}

func (s stubPendingLinkStore) Delete(ctx context.Context, tx store.Execer, accountID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, tx, accountID)
}

type stubVerifier struct {
	prepareCodeFn func(ctx context.Context, tx store.Execer, accountID string) (string, error)
	verifyCodeFn  func(ctx context.Context, accountID, code string) error
	reissueFn     func(ctx context.Context, accountID string) error
	delivered     []string
}

func (s *stubVerifier) PrepareCode(ctx context.Context, tx store.Execer, accountID string) (string, error) {
	if s.prepareCodeFn == nil {
		return "123456", nil
	}
	return s.prepareCodeFn(ctx, tx, accountID)
}

func (s *stubVerifier) Deliver(email, code string) {
	s.delivered = append(s.delivered, email)
}

func (s *stubVerifier) VerifyCode(ctx context.Context, accountID, code string) error {
	if s.verifyCodeFn == nil {
		return nil
	}
	return s.verifyCodeFn(ctx, accountID, code)
}

func (s *stubVerifier) ReissueCode(ctx context.Context, accountID string) error {
	if s.reissueFn == nil {
		return nil
	}
	return s.reissueFn(ctx, accountID)
}

type stubLinker struct {
	createFn func(ctx context.Context, a, b string) error
	calls    [][2]string
}

func (s *stubLinker) CreateBidirectional(ctx context.Context, a, b string) error {
	s.calls = append(s.calls, [2]string{a, b})
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, a, b)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubNotifier struct {
	mu    sync.Mutex
	sends []string
}

func (s *stubNotifier) Send(_ context.Context, address, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, address)
	return nil
}

type stubFriendshipEdgeStore struct {
	insertFn func(ctx context.Context, tx store.Execer, a, b string) error
	existsFn func(ctx context.Context, a, b string) (bool, error)
	listFn   func(ctx context.Context, accountID string) ([]store.Friend, error)
}

func (s stubFriendshipEdgeStore) InsertEdges(ctx context.Context, tx store.Execer, a, b string) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, a, b)
}

func (s stubFriendshipEdgeStore) Exists(ctx context.Context, a, b string) (bool, error) {
	if s.existsFn == nil {
		return false, nil
	}
	return s.existsFn(ctx, a, b)
}

func (s stubFriendshipEdgeStore) ListFriends(ctx context.Context, accountID string) ([]store.Friend, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, accountID)
}

type stubExpenseStore struct {
	insertFn func(ctx context.Context, tx store.Execer, input store.ExpenseInput) error
	listFn   func(ctx context.Context, a, b string) ([]store.Expense, error)
}

func (s stubExpenseStore) Insert(ctx context.Context, tx store.Execer, input store.ExpenseInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s stubExpenseStore) ListBetween(ctx context.Context, a, b string) ([]store.Expense, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, a, b)
}

type stubFriendChecker struct {
	areFriendsFn func(ctx context.Context, a, b string) (bool, error)
}

func (s stubFriendChecker) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if s.areFriendsFn == nil {
		return true, nil
	}
	return s.areFriendsFn(ctx, a, b)
}

type stubHub struct {
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.calls = append(s.calls, update)
}

// In-memory fakes backing the end-to-end onboarding and ledger scenarios.

type memAccountStore struct {
	mu       sync.Mutex
	accounts map[string]store.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: map[string]store.Account{}}
}

func (m *memAccountStore) Create(_ context.Context, _ store.Execer, id, email string, name *string, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = store.Account{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	return nil
}

func (m *memAccountStore) GetByEmail(_ context.Context, email string) (store.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return store.Account{}, sql.ErrNoRows
}

func (m *memAccountStore) GetByID(_ context.Context, accountID string) (store.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return store.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (m *memAccountStore) MarkVerified(_ context.Context, _ store.Execer, accountID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok || account.Verified {
		return 0, nil
	}
	now := time.Now()
	account.Verified = true
	account.VerifiedAt = &now
	m.accounts[accountID] = account
	return 1, nil
}

type memCodeStore struct {
	mu    sync.Mutex
	codes map[string]struct {
		code      string
		expiresAt time.Time
	}
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{codes: map[string]struct {
		code      string
		expiresAt time.Time
	}{}}
}

func (m *memCodeStore) Upsert(_ context.Context, _ store.Execer, accountID, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[accountID] = struct {
		code      string
		expiresAt time.Time
	}{code, expiresAt}
	return nil
}

func (m *memCodeStore) Consume(_ context.Context, _ store.Execer, accountID, code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active, ok := m.codes[accountID]
	if !ok || active.code != code || time.Now().After(active.expiresAt) {
		return 0, nil
	}
	delete(m.codes, accountID)
	return 1, nil
}

func (m *memCodeStore) activeCode(accountID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[accountID].code
}

type memInvitationStore struct {
	mu          sync.Mutex
	invitations map[string]store.Invitation
}

func newMemInvitationStore() *memInvitationStore {
	return &memInvitationStore{invitations: map[string]store.Invitation{}}
}

func (m *memInvitationStore) Create(_ context.Context, _ store.Execer, token, inviterID, inviteeEmail string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations[token] = store.Invitation{
		Token:        token,
		InviterID:    inviterID,
		InviteeEmail: inviteeEmail,
		Status:       "pending",
		CreatedAt:    time.Now(),
		ExpiresAt:    expiresAt,
	}
	return nil
}

func (m *memInvitationStore) GetByToken(_ context.Context, token string) (store.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invitation, ok := m.invitations[token]
	if !ok {
		return store.Invitation{}, sql.ErrNoRows
	}
	return invitation, nil
}

func (m *memInvitationStore) FindPending(_ context.Context, inviterID, inviteeEmail string) (store.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, invitation := range m.invitations {
		if invitation.InviterID == inviterID && invitation.InviteeEmail == inviteeEmail &&
			invitation.Status == "pending" && time.Now().Before(invitation.ExpiresAt) {
			return invitation, nil
		}
	}
	return store.Invitation{}, sql.ErrNoRows
}

func (m *memInvitationStore) Accept(_ context.Context, _ store.Execer, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invitation, ok := m.invitations[token]
	if !ok || invitation.Status != "pending" || time.Now().After(invitation.ExpiresAt) {
		return 0, nil
	}
	now := time.Now()
	invitation.Status = "accepted"
	invitation.AcceptedAt = &now
	m.invitations[token] = invitation
	return 1, nil
}

type memPendingLinkStore struct {
	mu    sync.Mutex
	links map[string]string
}

func newMemPendingLinkStore() *memPendingLinkStore {
	return &memPendingLinkStore{links: map[string]string{}}
}

func (m *memPendingLinkStore) Create(_ context.Context, _ store.Execer, accountID, inviterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[accountID]; !ok {
		m.links[accountID] = inviterID
	}
	return nil
}

func (m *memPendingLinkStore) GetInviter(_ context.Context, accountID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inviterID, ok := m.links[accountID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return inviterID, nil
}

func (m *memPendingLinkStore) Delete(_ context.Context, _ store.Execer, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, accountID)
	return nil
}

type memFriendshipStore struct {
	mu       sync.Mutex
	edges    map[string]map[string]time.Time
	accounts *memAccountStore
}

func newMemFriendshipStore(accounts *memAccountStore) *memFriendshipStore {
	return &memFriendshipStore{edges: map[string]map[string]time.Time{}, accounts: accounts}
}

func (m *memFriendshipStore) InsertEdges(_ context.Context, _ store.Execer, a, b string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertEdge(a, b)
	m.insertEdge(b, a)
	return nil
}

func (m *memFriendshipStore) insertEdge(from, to string) {
	if m.edges[from] == nil {
		m.edges[from] = map[string]time.Time{}
	}
	if _, ok := m.edges[from][to]; !ok {
		m.edges[from][to] = time.Now()
	}
}

func (m *memFriendshipStore) Exists(_ context.Context, a, b string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.edges[a][b]
	return ok, nil
}

func (m *memFriendshipStore) ListFriends(ctx context.Context, accountID string) ([]store.Friend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var friends []store.Friend
	for friendID, since := range m.edges[accountID] {
		account, _ := m.accounts.GetByID(ctx, friendID)
		friends = append(friends, store.Friend{
			AccountID: friendID,
			Name:      account.Name,
			Email:     account.Email,
			CreatedAt: since,
		})
	}
	sort.Slice(friends, func(i, j int) bool { return friends[i].AccountID < friends[j].AccountID })
	return friends, nil
}

type memExpenseStore struct {
	mu       sync.Mutex
	expenses []store.Expense
}

func newMemExpenseStore() *memExpenseStore {
	return &memExpenseStore{}
}

func (m *memExpenseStore) Insert(_ context.Context, _ store.Execer, input store.ExpenseInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses = append(m.expenses, store.Expense{
		ID:          input.ID,
		FirstID:     input.FirstID,
		SecondID:    input.SecondID,
		PayerID:     input.PayerID,
		AmountMinor: input.AmountMinor,
		Description: input.Description,
		ExpenseDate: input.ExpenseDate,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (m *memExpenseStore) ListBetween(_ context.Context, a, b string) ([]store.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := store.PairKey(a, b)
	var records []store.Expense
	for _, expense := range m.expenses {
		if store.PairKey(expense.FirstID, expense.SecondID) == key {
			records = append(records, expense)
		}
	}
	return records, nil
}

func stringPtr(value string) *string {
	return &value
}
