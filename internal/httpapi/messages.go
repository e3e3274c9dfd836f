package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ponziland/chainindexer/internal/messaging"
)

type postMessageRequest struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

type messageResponse struct {
	ID        int64  `json:"id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

func messagesRouter(service *messaging.Service) http.Handler {
	r := chi.NewRouter()

	r.Post("/", func(w http.ResponseWriter, req *http.Request) {
		var body postMessageRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		msg, err := service.Post(req.Context(), body.Author, body.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, messageResponse{
			ID: msg.ID, Author: msg.AuthorAddress, Body: msg.Body,
			CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339),
		})
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		limit := 100
		if l := req.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil {
				limit = parsed
			}
		}
		rows, err := service.Recent(req.Context(), limit)
		if err != nil {
			writeRepositoryError(w, err)
			return
		}
		out := make([]messageResponse, 0, len(rows))
		for _, m := range rows {
			out = append(out, messageResponse{
				ID: m.ID, Author: m.AuthorAddress, Body: m.Body,
				CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Delete("/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be an integer")
			return
		}
		if err := service.Delete(req.Context(), id); err != nil {
			writeRepositoryError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
