package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"splitbook/internal/middleware"
	"splitbook/internal/services"
	"splitbook/internal/validator"
)

type inviteRequest struct {
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	outcome, err := h.onboarding.InviteOrLink(r.Context(), accountID, req.Email, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfInvite):
			respondError(w, http.StatusBadRequest, "self_invite")
		case errors.Is(err, validator.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid_email")
		case errors.Is(err, services.ErrNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		default:
			respondError(w, http.StatusInternalServerError, "invite_failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"friend_exists":      outcome.FriendExists,
		"friendship_created": outcome.FriendshipCreated,
		"invitation_issued":  outcome.InvitationIssued,
	})
}

func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	friends, err := h.friendships.ListFriends(r.Context(), accountID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load friends")
		return
	}
	normalized := make([]map[string]any, 0, len(friends))
	for _, friend := range friends {
		name := ""
		if friend.Name != nil {
			name = *friend.Name
		}
		normalized = append(normalized, map[string]any{
			"account_id": friend.AccountID,
			"name":       name,
			"email":      friend.Email,
			"since":      friend.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}
