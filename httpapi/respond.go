package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrEthical07/sessionauth"
)

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("malformed input")

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// decode reads a JSON body into dst and checks its validate tags. Any
// failure is errBadBody.
func (h *handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadBody), errors.Is(err, sessionauth.ErrMalformedInput):
		return http.StatusUnprocessableEntity, "Malformed input"
	case errors.Is(err, sessionauth.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, sessionauth.ErrConflict):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, sessionauth.ErrIncorrectCredentials):
		return http.StatusUnauthorized, "Incorrect credentials"
	case errors.Is(err, sessionauth.ErrMissingToken):
		return http.StatusBadRequest, "Missing token"
	case errors.Is(err, sessionauth.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token"
	default:
		return http.StatusInternalServerError, "Unexpected error"
	}
}
