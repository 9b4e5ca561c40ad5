package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/middleware"
)

// Pointer fields distinguish a missing field (422) from an empty one,
// which the engine rejects as invalid input (400).
type signupRequest struct {
	Email         *string `json:"email" validate:"required"`
	Password      *string `json:"password" validate:"required"`
	RequiresTwoFA *bool   `json:"requires2FA" validate:"required"`
}

type loginRequest struct {
	Email    *string `json:"email" validate:"required"`
	Password *string `json:"password" validate:"required"`
}

type verifyTwoFARequest struct {
	Email          *string `json:"email" validate:"required"`
	LoginAttemptID *string `json:"login_attempt_id" validate:"required"`
	TwoFACode      *string `json:"two_fa_code" validate:"required"`
}

type verifyTokenRequest struct {
	Token *string `json:"token" validate:"required"`
}

type twoFactorResponse struct {
	Message        string `json:"message"`
	LoginAttemptID string `json:"loginAttemptId"`
}

type meResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.auth.Signup(r.Context(), *req.Email, *req.Password, *req.RequiresTwoFA); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "User created successfully!"})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), *req.Email, *req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if res.Status == sessionauth.StatusChallengeIssued {
		writeJSON(w, http.StatusPartialContent, twoFactorResponse{
			Message:        "2FA required",
			LoginAttemptID: res.ChallengeID.String(),
		})
		return
	}

	h.setSessionCookie(w, res)
	w.WriteHeader(http.StatusOK)
}

func (h *handler) verifyTwoFA(w http.ResponseWriter, r *http.Request) {
	var req verifyTwoFARequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.auth.VerifyChallenge(r.Context(), *req.Email, *req.LoginAttemptID, *req.TwoFACode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, res)
	w.WriteHeader(http.StatusOK)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.TokenFromRequest(r)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

func (h *handler) verifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.auth.VerifyToken(r.Context(), *req.Token); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Token is valid"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, r, sessionauth.ErrInvalidToken)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Email: claims.Email(), ExpiresAt: claims.Expiry()})
}

func (h *handler) setSessionCookie(w http.ResponseWriter, res *sessionauth.LoginResult) {
	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
