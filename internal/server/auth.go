package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Auth guards admin routes with one shared bearer token. With no token
// configured every route is open.
type Auth struct {
	Token        string
	PasswordHash []byte
}

// NewAuth hashes the admin password once at startup.
func NewAuth(token, password string) (Auth, error) {
	a := Auth{Token: token}
	if password == "" {
		return a, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Auth{}, fmt.Errorf("hashing admin password: %w", err)
	}
	a.PasswordHash = hash
	return a, nil
}

func (a Auth) Enabled() bool {
	return a.Token != ""
}

func (a Auth) authorized(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.Token)) == 1
}

func (a Auth) checkPassword(password string) bool {
	if a.PasswordHash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) == nil
}

// LoginRequest is the request body for POST /api/auth.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the shared admin token.
type LoginResponse struct {
	Token string `json:"token"`
}

// VerifyResponse is the response for GET /api/auth/verify.
type VerifyResponse struct {
	Valid    bool `json:"valid"`
	Required bool `json:"required"`
}

func handleLogin(auth Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Password == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "password is required", Field: "password"})
			return
		}
		if !auth.checkPassword(req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{Token: auth.Token})
	}
}

func handleVerify(auth Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, VerifyResponse{Required: true})
			return
		}
		writeJSON(w, http.StatusOK, VerifyResponse{Valid: true, Required: auth.Enabled()})
	}
}
