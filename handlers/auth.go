package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/camden-git/signabackend/models"
	"github.com/camden-git/signabackend/services"
)

// AuthHandler serves the /api/auth routes.
type AuthHandler struct {
	Auth   *services.AuthService
	Logger *slog.Logger
}

func NewAuthHandler(auth *services.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{Auth: auth, Logger: logger}
}

// LoginPayload is the body of POST /api/auth/login.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userView struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func newUserView(p *models.Person) userView {
	return userView{ID: p.ID, Name: p.Name, Surname: p.Surname, Email: p.Email, Username: p.Email}
}

// LoginResponse carries the bearer token and the authenticated user.
type LoginResponse struct {
	Message     string    `json:"message"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        userView  `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if payload.Username == "" || payload.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	res, err := h.Auth.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:     "login successful",
		AccessToken: res.Token,
		TokenType:   "Bearer",
		ExpiresAt:   res.ExpiresAt,
		User:        newUserView(res.Person),
	})
}

// Register creates a person with generated credentials. The generated
// password is returned once in the response and never again.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	reg, err := h.Auth.Register(r.Context(), payload)
	if err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "user registered successfully",
		"user_id":  reg.Person.ID,
		"username": reg.Person.Email,
		"password": reg.Password,
		"note":     "the password is shown only once; use /api/auth/login to obtain a token",
	})
}

// Logout is stateless; clients discard their token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out, discard your token"})
}

// CurrentUser returns the identity carried by the caller's token.
// This handler should be protected by the AuthMiddleware.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, services.KindAuthentication.String(), "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": userView{
			ID:       claims.UserID,
			Name:     claims.Name,
			Surname:  claims.Surname,
			Email:    claims.Email,
			Username: claims.Username,
		},
	})
}
