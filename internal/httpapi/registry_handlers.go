package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"cratevault.org/internal/audit"
	"cratevault.org/internal/auth"
	"cratevault.org/internal/obs"
	"cratevault.org/internal/registry"
)

type registryConfig struct {
	DL  string `json:"dl"`
	API string `json:"api"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type publishWarnings struct {
	InvalidCategories []string `json:"invalid_categories"`
	InvalidBadges     []string `json:"invalid_badges"`
	Other             []string `json:"other"`
}

type publishResponse struct {
	Warnings publishWarnings `json:"warnings"`
}

type ownersResponse struct {
	Users []registry.Owner `json:"users"`
}

type addOwnersRequest struct {
	Users []string `json:"users"`
}

type addOwnersResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

// ConfigJSON tells cargo where the API and download endpoints live.
func (a *API) ConfigJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registryConfig{
		DL:  a.baseURL + "/api/v1/crates",
		API: a.baseURL,
	})
}

// RedirectForToken sends `cargo login` users to the token management page.
func (a *API) RedirectForToken(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, a.baseURL+"/v1/tokens", http.StatusSeeOther)
}

// handleCrates dispatches everything under /api/v1/crates/.
func (a *API) handleCrates(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/crates/")
	if path == "new" {
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.publishCrate(w, r)
		return
	}

	segs := strings.Split(path, "/")
	switch {
	case len(segs) == 2 && segs[1] == "owners":
		a.handleOwners(w, r, segs[0])
	case len(segs) == 3 && segs[2] == "download":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.downloadCrate(w, r, segs[0], segs[1])
	case len(segs) == 3 && segs[2] == "yank":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.setYanked(w, r, segs[0], segs[1], true)
	case len(segs) == 3 && segs[2] == "unyank":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.setYanked(w, r, segs[0], segs[1], false)
	default:
		writeRegistryError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) publishCrate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeRegistryError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		obs.CountPublish("error")
		writeRegistryError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	info, err := a.publisher.Publish(r.Context(), userID, body)
	if err != nil {
		obs.CountPublish(publishResult(err))
		handleRegistryError(w, r, err)
		return
	}
	obs.CountPublish("ok")

	_ = audit.LogEvent(r.Context(), "registry.publish", map[string]any{
		"crate":   info.Name,
		"version": info.Vers,
		"cksum":   info.Cksum,
	})
	writeJSON(w, http.StatusOK, publishResponse{
		Warnings: publishWarnings{
			InvalidCategories: []string{},
			InvalidBadges:     []string{},
			Other:             []string{},
		},
	})
}

func (a *API) downloadCrate(w http.ResponseWriter, r *http.Request, name, version string) {
	data, err := a.publisher.Download(r.Context(), name, version)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/gzip")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *API) setYanked(w http.ResponseWriter, r *http.Request, name, version string, yanked bool) {
	if err := a.publisher.Yank(r.Context(), name, version, yanked); err != nil {
		handleRegistryError(w, r, err)
		return
	}
	action := "yank"
	if !yanked {
		action = "unyank"
	}
	obs.CountYank(action)
	_ = audit.LogEvent(r.Context(), "registry."+action, map[string]any{
		"crate":   name,
		"version": version,
	})
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (a *API) handleOwners(w http.ResponseWriter, r *http.Request, name string) {
	switch r.Method {
	case http.MethodGet:
		owners, err := a.publisher.ListOwners(r.Context(), name)
		if err != nil {
			handleRegistryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ownersResponse{Users: owners})
	case http.MethodPut:
		actorID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			writeRegistryError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		var req addOwnersRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeRegistryError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Users) == 0 {
			writeRegistryError(w, http.StatusBadRequest, "users are required")
			return
		}
		if err := a.publisher.AddOwners(r.Context(), actorID, name, req.Users); err != nil {
			handleRegistryError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "registry.owners.add", map[string]any{
			"crate": name,
			"users": req.Users,
		})
		writeJSON(w, http.StatusOK, addOwnersResponse{
			OK:  true,
			Msg: "owners added",
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

// handleIndex resolves the sharded index paths: /1/{n}, /2/{n}, /3/{c}/{n}
// and /{ab}/{cd}/{name}.
func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	name, ok := crateNameFromIndexPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	infos, err := a.repo.GetPackageInfo(r.Context(), name)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	body, err := registry.RenderIndex(infos)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// crateNameFromIndexPath extracts the package name when the path matches the
// index layout exactly.
func crateNameFromIndexPath(path string) (string, bool) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "", false
	}
	segs := strings.Split(trimmed, "/")
	var name string
	switch len(segs) {
	case 2:
		name = segs[1]
	case 3:
		name = segs[2]
	default:
		return "", false
	}
	if registry.IndexPath(name) != trimmed {
		return "", false
	}
	return name, true
}

func publishResult(err error) string {
	var dup *registry.DuplicateVersionError
	switch {
	case errors.As(err, &dup):
		return "duplicate"
	case errors.Is(err, registry.ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, registry.ErrWriteConflict):
		return "conflict"
	default:
		return "error"
	}
}
