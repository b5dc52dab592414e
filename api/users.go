package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/paperspeak/paperspeak/internal/log"
	"github.com/paperspeak/paperspeak/internal/user"
)

// MaxEmailLength bounds the auth callback payload.
const MaxEmailLength = 320

// UserStore is the slice of the user store the handler needs.
type UserStore interface {
	Upsert(ctx context.Context, id, email string) (*user.User, error)
}

// UserHandler handles the auth callback endpoint.
//
// The frontend calls this once after sign-in so the external auth
// provider's user gets a row before any file or message references it.
type UserHandler struct {
	users  UserStore
	logger log.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users UserStore, logger log.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// RegisterRoutes registers user routes on the given mux.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/callback", requireUser(h.callback))
}

type authCallbackRequest struct {
	Email string `json:"email"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// callback upserts the authenticated user, keyed by the identity the auth
// layer established. Re-running it for an existing user refreshes the email.
func (h *UserHandler) callback(w http.ResponseWriter, r *http.Request) {
	var req authCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || len(email) > MaxEmailLength || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "a valid email is required")
		return
	}

	u, err := h.users.Upsert(r.Context(), userID(r.Context()), email)
	if err != nil {
		h.logger.Error("upserting user", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to sync user")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: u.ID, Email: u.Email})
}
