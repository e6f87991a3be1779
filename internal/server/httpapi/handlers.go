// Package httpapi exposes the auth core as a JSON API over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	"github.com/dmitrijs2005/hobbyvault/internal/server/auth"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/dmitrijs2005/hobbyvault/internal/server/services"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 16

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         userResponse `json:"user"`
}

func newSession(a *models.Account, p *services.TokenPair) sessionResponse {
	return sessionResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		User:         userResponse{ID: a.ID, Email: a.Email},
	}
}

type Handlers struct {
	users  *services.UserService
	logger logging.Logger
}

func NewHandlers(users *services.UserService, logger logging.Logger) *Handlers {
	return &Handlers{users: users, logger: logger.With("module", "http_handlers")}
}

var errMalformedBody = &common.ValidationError{Fields: map[string]string{"body": "must be a JSON object"}}

// decode reads a JSON body. An empty body decodes to the zero value when
// allowEmpty is set.
func decode(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return errMalformedBody
	}
	return nil
}

func (h *Handlers) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	account, pair, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSession(account, pair))
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	account, pair, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSession(account, pair))
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// logout answers 200 whatever the body holds.
func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = decode(r, &req, true)

	h.users.Logout(r.Context(), req.RefreshToken)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: id.AccountID, Email: id.Email})
}

func (h *Handlers) deleteMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	if err := h.users.DeleteAccount(r.Context(), id.AccountID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
