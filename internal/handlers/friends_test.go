package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"splitbook/internal/services"
	"splitbook/internal/store"
)

func TestInviteRequiresAuth(t *testing.T) {
	router := newTestRouter(t, handlerDeps{})
	recorder := doJSON(t, router, http.MethodPost, "/friends/invite", "", map[string]string{"email": "b@x.com"})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestInviteSelf(t *testing.T) {
	router := newTestRouter(t, handlerDeps{
		onboarding: stubOnboarding{
			inviteOrLinkFn: func(context.Context, string, string, *string) (services.InviteOutcome, error) {
				return services.InviteOutcome{}, services.ErrSelfInvite
			},
		},
	})
	recorder := doJSON(t, router, http.MethodPost, "/friends/invite", bearerToken(t, "acc-1"), map[string]string{"email": "a@x.com"})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error"] != "self_invite" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestInviteLinksExistingAccount(t *testing.T) {
	router := newTestRouter(t, handlerDeps{
		onboarding: stubOnboarding{
			inviteOrLinkFn: func(_ context.Context, inviterID, inviteeEmail string, _ *string) (services.InviteOutcome, error) {
				if inviterID != "acc-1" || inviteeEmail != "b@x.com" {
					t.Fatalf("unexpected call: %s %s", inviterID, inviteeEmail)
				}
				return services.InviteOutcome{FriendExists: true, FriendshipCreated: true}, nil
			},
		},
	})
	recorder := doJSON(t, router, http.MethodPost, "/friends/invite", bearerToken(t, "acc-1"), map[string]string{"email": "b@x.com"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["friend_exists"] != true || body["friendship_created"] != true || body["invitation_issued"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestInviteIssuesInvitation(t *testing.T) {
	router := newTestRouter(t, handlerDeps{})
	recorder := doJSON(t, router, http.MethodPost, "/friends/invite", bearerToken(t, "acc-1"), map[string]string{"email": "new@x.com"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["invitation_issued"] != true || body["friend_exists"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["token"]; ok {
		t.Fatalf("the raw token must not leak in the response: %v", body)
	}
}

func TestListFriends(t *testing.T) {
	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	router := newTestRouter(t, handlerDeps{
		friendships: stubFriendships{
			listFriendsFn: func(_ context.Context, accountID string) ([]store.Friend, error) {
				if accountID != "acc-1" {
					t.Fatalf("unexpected account: %s", accountID)
				}
				name := "Bob"
				return []store.Friend{
					{AccountID: "acc-2", Name: &name, Email: "b@x.com", CreatedAt: since},
					{AccountID: "acc-3", Email: "c@x.com", CreatedAt: since},
				}, nil
			},
		},
	})
	recorder := doJSON(t, router, http.MethodGet, "/friends/", bearerToken(t, "acc-1"), nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var friends []map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &friends); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(friends) != 2 {
		t.Fatalf("expected two friends, got %d", len(friends))
	}
	if friends[0]["account_id"] != "acc-2" || friends[0]["name"] != "Bob" {
		t.Fatalf("unexpected first friend: %v", friends[0])
	}
	if friends[1]["name"] != "" {
		t.Fatalf("missing name must render as empty string: %v", friends[1])
	}
}

func TestListFriendsEmpty(t *testing.T) {
	router := newTestRouter(t, handlerDeps{})
	recorder := doJSON(t, router, http.MethodGet, "/friends/", bearerToken(t, "acc-1"), nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var friends []map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &friends); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if friends == nil || len(friends) != 0 {
		t.Fatalf("expected an empty array, got %v", friends)
	}
}
