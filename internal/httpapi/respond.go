// Package httpapi is the thin go-chi/chi/v5 HTTP surface over the
// repositories and services the workers maintain (SPEC_FULL §6): price,
// tokens, lands, land_historical, wallet activity, drops-emitted, and the
// out-of-scope-in-depth chat/messages CRUD.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ponziland/chainindexer/internal/repository"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeRepositoryError maps repository.ErrNotFound to 404 and everything
// else to 500, per SPEC_FULL §7's "query endpoints map typed errors to
// 400/404/500" policy.
func writeRepositoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
