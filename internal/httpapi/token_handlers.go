package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"cratevault.org/internal/audit"
	"cratevault.org/internal/auth"
)

type sessionRequest struct {
	User string `json:"user"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type generateTokenRequest struct {
	Name string `json:"name"`
}

type tokenView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type generateTokenResponse struct {
	Token tokenView `json:"token"`
	// Key is the plaintext credential, returned exactly once.
	Key string `json:"key"`
}

type listTokensResponse struct {
	Tokens []tokenView `json:"tokens"`
}

// handleSession exchanges an externally verified identity for a session
// credential. Who may reach this endpoint is a deployment concern: the
// fronting proxy is expected to authenticate the user first.
func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user := strings.TrimSpace(req.User)
	if user == "" {
		writeError(w, r, http.StatusBadRequest, "user is required")
		return
	}

	token, expiresAt, err := a.sessions.Issue(user)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session issuance failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.session.issued", map[string]any{
		"user":       user,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: expiresAt})
}

func (a *API) handleTokensCollection(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req generateTokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		tok, key, err := a.tokens.Generate(r.Context(), userID, req.Name)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidInput) {
				writeError(w, r, http.StatusBadRequest, "token name is required")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "token generation failed")
			return
		}
		_ = audit.LogEvent(r.Context(), "auth.token.created", map[string]any{
			"token_id": tok.ID,
			"name":     tok.Name,
		})
		writeJSON(w, http.StatusCreated, generateTokenResponse{
			Token: viewOf(tok),
			Key:   key,
		})
	case http.MethodGet:
		tokens, err := a.tokens.List(r.Context(), userID)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "token listing failed")
			return
		}
		views := make([]tokenView, 0, len(tokens))
		for _, tok := range tokens {
			views = append(views, viewOf(tok))
		}
		writeJSON(w, http.StatusOK, listTokensResponse{Tokens: views})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTokenResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	tokenID := strings.TrimPrefix(r.URL.Path, "/v1/tokens/")
	if tokenID == "" || strings.Contains(tokenID, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}

	if err := a.tokens.Delete(r.Context(), userID, tokenID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "token not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "token deletion failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.token.deleted", map[string]any{
		"token_id": tokenID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func viewOf(tok *auth.Token) tokenView {
	return tokenView{
		ID:        tok.ID,
		UserID:    tok.UserID,
		Name:      tok.Name,
		CreatedAt: tok.CreatedAt,
	}
}
