package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"splitbook/internal/auth"
	"splitbook/internal/middleware"
	"splitbook/internal/services"
	"splitbook/internal/validator"
)

type registerRequest struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	Name            *string `json:"name"`
	InvitationToken string  `json:"invitation_token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	result, err := h.onboarding.Register(r.Context(), services.RegisterRequest{
		Email:           req.Email,
		Password:        req.Password,
		Name:            req.Name,
		InvitationToken: req.InvitationToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, validator.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid_email")
		case errors.Is(err, validator.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "weak_password")
		case errors.Is(err, services.ErrEmailTaken):
			respondError(w, http.StatusConflict, "email_taken")
		default:
			respondError(w, http.StatusInternalServerError, "registration_failed")
		}
		return
	}
	payload := map[string]any{"account_id": result.AccountID}
	if result.Warning != "" {
		payload["warning"] = result.Warning
	}
	respondJSON(w, http.StatusCreated, payload)
}

type verifyRequest struct {
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	result, err := h.onboarding.VerifyEmail(r.Context(), req.AccountID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		case errors.Is(err, services.ErrInvalidOrExpiredCode):
			respondError(w, http.StatusBadRequest, "code_invalid_or_expired")
		default:
			respondError(w, http.StatusInternalServerError, "verification_failed")
		}
		return
	}
	payload := map[string]any{"verified": result.Verified}
	if result.Warning != "" {
		payload["warning"] = result.Warning
	}
	respondJSON(w, http.StatusOK, payload)
}

type resendRequest struct {
	AccountID string `json:"account_id"`
}

func (h *Handler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.onboarding.ResendCode(r.Context(), req.AccountID); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		case errors.Is(err, services.ErrAlreadyVerified):
			respondError(w, http.StatusConflict, "already_verified")
		default:
			respondError(w, http.StatusInternalServerError, "resend_failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	accountID, err := h.onboarding.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid_credentials")
		case errors.Is(err, services.ErrNotVerified):
			respondError(w, http.StatusForbidden, "not_verified")
		default:
			respondError(w, http.StatusInternalServerError, "login_failed")
		}
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, accountID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"token":      token,
		"account_id": accountID,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":         account.ID,
		"email":      account.Email,
		"name":       account.Name,
		"verified":   account.Verified,
		"created_at": account.CreatedAt,
	})
}
