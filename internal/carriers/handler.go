package carriers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/pkg/apperr"
	"freight-service/pkg/jwt"
)

// Handler exposes carrier HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the carrier service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all carrier routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.Get("/me", h.Me)
	r.Get("/{id}", h.GetByID)

	return r
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	c, err := h.svc.GetByID(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	c, err := h.svc.GetForUser(r.Context(), claims.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.Status(err), map[string]string{"error": apperr.UserMessage(err)})
}
