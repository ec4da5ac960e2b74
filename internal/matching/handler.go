package matching

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/pkg/apperr"
	"freight-service/pkg/jwt"
)

// Handler exposes the admin matching endpoint.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the matching service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with the matching routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Use(jwt.RequireRole(jwt.RoleAdmin))

	r.Post("/", h.Run)

	return r
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.RunPass(r.Context())
	if err != nil {
		writeJSON(w, apperr.Status(err), map[string]string{"error": apperr.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "matches_created": count})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
