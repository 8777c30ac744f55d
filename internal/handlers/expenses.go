package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"splitbook/internal/middleware"
	"splitbook/internal/money"
	"splitbook/internal/services"

	"github.com/go-chi/chi/v5"
)

type recordExpenseRequest struct {
	FriendID    string `json:"friend_id"`
	PayerID     string `json:"payer_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	ExpenseDate string `json:"expense_date"`
}

func (h *Handler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req recordExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.FriendID) == "" {
		respondError(w, http.StatusBadRequest, "friend_id is required")
		return
	}
	amountMinor, err := money.ParseMinor(req.Amount)
	if err != nil || amountMinor <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	expenseDate, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_expense_date")
		return
	}
	payerID := req.PayerID
	if payerID == "" {
		payerID = accountID
	}
	expenseID, err := h.ledger.RecordExpense(r.Context(), services.RecordExpenseRequest{
		FirstID:     accountID,
		SecondID:    req.FriendID,
		PayerID:     payerID,
		AmountMinor: amountMinor,
		Description: req.Description,
		ExpenseDate: expenseDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFriends):
			respondError(w, http.StatusForbidden, "not_friends")
		case errors.Is(err, services.ErrInvalidPayer):
			respondError(w, http.StatusBadRequest, "invalid_payer")
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "invalid_amount")
		case errors.Is(err, services.ErrEmptyDescription):
			respondError(w, http.StatusBadRequest, "empty_description")
		default:
			respondError(w, http.StatusInternalServerError, "expense_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"expense_id": expenseID})
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	friendID := chi.URLParam(r, "friendID")
	records, err := h.ledger.ListBetween(r.Context(), accountID, friendID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load expenses")
		return
	}
	normalized := make([]map[string]any, 0, len(records))
	for _, record := range records {
		normalized = append(normalized, map[string]any{
			"id":           record.ID,
			"payer_id":     record.PayerID,
			"amount":       money.FormatMinor(record.AmountMinor),
			"description":  record.Description,
			"expense_date": record.ExpenseDate.Format("2006-01-02"),
			"created_at":   record.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	friendID := chi.URLParam(r, "friendID")
	friends, err := h.friendships.AreFriends(r.Context(), accountID, friendID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load balance")
		return
	}
	if !friends {
		respondError(w, http.StatusForbidden, "not_friends")
		return
	}
	balance, err := h.ledger.Balance(r.Context(), accountID, friendID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"friend_id":   friendID,
		"balance":     money.FormatMinor(balance),
		"owed_to_you": balance > 0,
		"settled":     balance == 0,
	})
}
