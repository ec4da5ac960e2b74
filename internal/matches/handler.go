package matches

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/pkg/apperr"
	"freight-service/pkg/jwt"
)

// Handler exposes match HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the match service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all match routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/assign", h.Assign)
	r.Post("/{id}/pickup", h.ConfirmPickup)
	r.Post("/{id}/complete", h.Complete)

	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	list, err := h.svc.List(r.Context(), claims)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": list})
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	m, err := h.svc.GetByID(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	m, err := h.svc.Accept(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	var req RejectRequest
	// body is optional; an absent reason is stored as empty
	json.NewDecoder(r.Body).Decode(&req)

	m, err := h.svc.Reject(r.Context(), claims, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DriverID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "driver_id is required"})
		return
	}
	m, err := h.svc.AssignDriver(r.Context(), claims, chi.URLParam(r, "id"), req.DriverID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	m, err := h.svc.ConfirmPickup(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	m, err := h.svc.Complete(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.Status(err), map[string]string{"error": apperr.UserMessage(err)})
}
