package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"freight-service/internal/matches"
	"freight-service/internal/observability"
	"freight-service/pkg/apperr"
	"freight-service/pkg/jwt"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSession wraps a websocket.Conn with a write mutex and deadline.
// gorilla/websocket allows one concurrent writer; the mutex enforces that,
// and the deadline bounds how long an unresponsive peer can block a room.
type wsSession struct {
	mu           sync.Mutex
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsSession) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *wsSession) close() { c.ws.Close() }

// relayService is the slice of the tracking service the handler needs.
type relayService interface {
	AuthorizeObserver(ctx context.Context, claims *jwt.Claims, matchID string) (*matches.Match, error)
	History(ctx context.Context, claims *jwt.Claims, matchID string) ([]LocationSample, error)
	RecordSample(ctx context.Context, claims *jwt.Claims, req UpdateRequest) (*LocationSample, bool, error)
	UpdateDeliveryStatus(ctx context.Context, claims *jwt.Claims, matchID, status string) (bool, error)
	LastKnown(ctx context.Context, claims *jwt.Claims, matchID string) (*LocationSample, error)
}

// Handler exposes the WebSocket relay plus its plain-HTTP fallbacks.
type Handler struct {
	hub          *Hub
	svc          relayService
	writeTimeout time.Duration
}

// NewHandler wires the relay handler.
func NewHandler(hub *Hub, svc relayService, writeTimeout time.Duration) *Handler {
	return &Handler{hub: hub, svc: svc, writeTimeout: writeTimeout}
}

// Routes returns the /ws mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/tracking", h.HandleWS)
	return r
}

// LocationRoutes returns the /api/location mount point (HTTP fallback for
// clients without a socket).
func (h *Handler) LocationRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Post("/update", h.UpdateLocation)
	r.Get("/path/{matchID}", h.Path)
	return r
}

// HandleWS authenticates, upgrades, and serves the relay event loop. Events
// that fail reply with an error event; the connection stays open.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	if claims == nil {
		// browsers cannot set headers on the WS handshake, so the token may
		// ride in the query string instead
		if token := r.URL.Query().Get("token"); token != "" {
			claims, _ = jwt.Validate(token)
		}
	}
	if claims == nil {
		jwt.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sess := &wsSession{ws: ws, writeTimeout: h.writeTimeout}
	observability.TrackingSessions.Inc()

	defer func() {
		h.hub.LeaveAll(sess)
		sess.close()
		observability.TrackingSessions.Dec()
	}()

	_ = sess.send(map[string]any{"event": "connected"})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(sess, "invalid message")
			continue
		}
		h.dispatch(r.Context(), claims, sess, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, claims *jwt.Claims, sess session, msg inbound) {
	if msg.MatchID == "" {
		h.sendError(sess, "match_id is required")
		return
	}

	switch msg.Event {
	case "join_tracking":
		if _, err := h.svc.AuthorizeObserver(ctx, claims, msg.MatchID); err != nil {
			h.sendError(sess, apperr.UserMessage(err))
			return
		}
		err := h.hub.Join(msg.MatchID, sess, func() error {
			if err := sess.send(map[string]any{"event": "joined_tracking", "match_id": msg.MatchID}); err != nil {
				return err
			}
			history, err := h.svc.History(ctx, claims, msg.MatchID)
			if err != nil {
				return err
			}
			return sess.send(map[string]any{
				"event":     "location_history",
				"match_id":  msg.MatchID,
				"locations": history,
			})
		})
		if err != nil {
			h.sendError(sess, apperr.UserMessage(err))
		}

	case "leave_tracking":
		h.hub.Leave(msg.MatchID, sess)
		_ = sess.send(map[string]any{"event": "left_tracking", "match_id": msg.MatchID})

	case "update_location":
		req := UpdateRequest{
			MatchID: msg.MatchID, Latitude: msg.Latitude, Longitude: msg.Longitude,
			Status: msg.Status, Notes: msg.Notes,
		}
		var sample *LocationSample
		var completed bool
		err := h.hub.Publish(msg.MatchID, func() (any, error) {
			var err error
			sample, completed, err = h.svc.RecordSample(ctx, claims, req)
			if err != nil {
				return nil, err
			}
			observability.LocationSamples.Inc()
			return map[string]any{"event": "location_updated", "location": sample}, nil
		})
		if err != nil {
			h.sendError(sess, apperr.UserMessage(err))
			return
		}
		_ = sess.send(map[string]any{"event": "location_update_success", "location": sample})
		if completed {
			h.broadcastStatus(msg.MatchID, SampleStatusDelivered)
		}

	case "request_location":
		loc, err := h.svc.LastKnown(ctx, claims, msg.MatchID)
		if err != nil {
			h.sendError(sess, apperr.UserMessage(err))
			return
		}
		_ = sess.send(map[string]any{"event": "current_location", "location": loc})

	case "delivery_status_update":
		completed, err := h.svc.UpdateDeliveryStatus(ctx, claims, msg.MatchID, msg.Status)
		if err != nil {
			h.sendError(sess, apperr.UserMessage(err))
			return
		}
		// only a delivered signal changes state; observers hear nothing for
		// informational acknowledgements
		if completed {
			h.broadcastStatus(msg.MatchID, SampleStatusDelivered)
		}
		_ = sess.send(map[string]any{
			"event":     "status_update_success",
			"match_id":  msg.MatchID,
			"status":    msg.Status,
			"completed": completed,
		})

	default:
		h.sendError(sess, "unknown event")
	}
}

func (h *Handler) broadcastStatus(matchID, status string) {
	_ = h.hub.Publish(matchID, func() (any, error) {
		return map[string]any{
			"event":     "delivery_status_changed",
			"match_id":  matchID,
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
		}, nil
	})
}

func (h *Handler) sendError(sess session, msg string) {
	_ = sess.send(map[string]any{"event": "error", "message": msg})
}

// UpdateLocation is the HTTP fallback for update_location.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.MatchID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "match_id, latitude and longitude are required"})
		return
	}

	var sample *LocationSample
	var completed bool
	err := h.hub.Publish(req.MatchID, func() (any, error) {
		var err error
		sample, completed, err = h.svc.RecordSample(r.Context(), claims, req)
		if err != nil {
			return nil, err
		}
		observability.LocationSamples.Inc()
		return map[string]any{"event": "location_updated", "location": sample}, nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	if completed {
		h.broadcastStatus(req.MatchID, SampleStatusDelivered)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"location": sample, "completed": completed})
}

// Path is the HTTP fallback for location_history.
func (h *Handler) Path(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	matchID := chi.URLParam(r, "matchID")
	history, err := h.svc.History(r.Context(), claims, matchID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"match_id": matchID, "locations": history})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.Status(err), map[string]string{"error": apperr.UserMessage(err)})
}
