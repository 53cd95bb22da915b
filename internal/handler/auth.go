package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tanvir/taskdeck/internal/account"
	"github.com/tanvir/taskdeck/internal/auth"
	"github.com/tanvir/taskdeck/internal/model"
)

// AuthHandler exposes the account store over HTTP:
//
//	POST /api/register → create an account, log it in, set the credential cookie
//	POST /api/login    → authenticate, set the credential cookie
//	POST /api/logout   → clear cookie + session pointer
//	GET  /api/me       → the currently logged-in user
type AuthHandler struct {
	accounts *account.Store
	tokens   *auth.TokenService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler; all dependencies are injected.
func NewAuthHandler(accounts *account.Store, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
	}
}

// userResponse is the API view of a user. The persisted model carries the
// password (that's its storage contract); responses never do.
type userResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/register
//
// Field presence is checked here, not in the store — the same rule the
// original system applied: the account store enforces uniqueness and
// normalization, the consumer enforces "all fields are required".
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	fields := []struct{ name, value string }{
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
		{"email", req.Email},
		{"password", req.Password},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: f.name + " is required"})
			return
		}
	}

	user, err := h.accounts.Register(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if !h.issueCredential(w, user.Email) {
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleLogin authenticates an existing account.
//
// HTTP: POST /api/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if !h.issueCredential(w, user.Email) {
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleLogout clears the credential cookie and the persisted session
// pointer.
//
// HTTP: POST /api/logout
//
// POST, not GET — logout changes state, and GET would be vulnerable to
// CSRF and browser prefetching.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the user the session pointer references.
//
// HTTP: GET /api/me
//
// This reads the domain session, not the JWT — it answers "who is logged
// in" the same way an embedded consumer of the account store would.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := h.accounts.CurrentUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "no active session"})
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// issueCredential signs a JWT for the identity and sets the HttpOnly
// cookie. Reports false after writing an error response.
func (h *AuthHandler) issueCredential(w http.ResponseWriter, email string) bool {
	token, err := h.tokens.Generate(email)
	if err != nil {
		h.logger.Error("token generation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "authentication failed"})
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable when serving over HTTPS
	})
	return true
}
