package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"cratevault.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/",
	"/config.json",
	"/me",
	"/v1/auth/session",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
}

// withAuth authenticates every request that is not an anonymous read path.
// Requests under /v1/tokens carry a session credential; everything under
// /api/v1 carries a registry token. Index lookups are anonymous.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cargoStyle := strings.HasPrefix(r.URL.Path, "/api/")

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, r, cargoStyle, err.Error())
			return
		}

		var userID string
		if cargoStyle {
			userID, err = a.tokens.Authenticate(r.Context(), token)
		} else {
			userID, err = a.sessions.Validate(token)
		}
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				unauthorized(w, r, cargoStyle, "invalid token")
			default:
				if cargoStyle {
					writeRegistryError(w, http.StatusInternalServerError, "authentication error")
				} else {
					writeError(w, r, http.StatusInternalServerError, "authentication error")
				}
			}
			return
		}

		ctx := auth.ContextWithUser(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, cargoStyle bool, msg string) {
	if cargoStyle {
		writeRegistryError(w, http.StatusUnauthorized, msg)
		return
	}
	writeError(w, r, http.StatusUnauthorized, msg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// isPublicPath reports whether the path needs no credential. Index lookups
// live outside /api and /v1 and are public reads.
func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	if strings.HasPrefix(path, "/api/") {
		return false
	}
	if strings.HasPrefix(path, "/v1/") {
		return false
	}
	return true
}
