package live

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/api"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
	"github.com/ashureev/confido/internal/identity"
	"github.com/ashureev/confido/internal/session"
)

// Message types exchanged over the socket.
const (
	TypeTick      = "tick"
	TypeStatus    = "status"
	TypeCompleted = "completed"
	TypeError     = "error"

	CommandPause    = "pause"
	CommandResume   = "resume"
	CommandComplete = "complete"
)

// ClientMessage is a command sent by the client.
type ClientMessage struct {
	Type string `json:"type"`
}

// ServerMessage is pushed to the client.
type ServerMessage struct {
	Type           string          `json:"type"`
	ElapsedSeconds int             `json:"elapsed_seconds"`
	Status         domain.Status   `json:"status,omitempty"`
	Session        *domain.Session `json:"session,omitempty"`
	Error          string          `json:"error,omitempty"`
	Kind           apperr.Kind     `json:"kind,omitempty"`
}

func completedMessage(s *domain.Session) ServerMessage {
	return ServerMessage{
		Type:           TypeCompleted,
		ElapsedSeconds: s.DurationSeconds,
		Status:         s.Status,
		Session:        s,
	}
}

func errorMessage(err error) ServerMessage {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindInternal {
		msg = "internal error"
	}
	return ServerMessage{Type: TypeError, Error: msg, Kind: kind}
}

// Handler upgrades GET /ws/sessions/{id} to a live timer stream.
type Handler struct {
	sessions      *session.Lifecycle
	registry      *Registry
	allowedOrigin string
	isDev         bool
	tick          time.Duration
	heartbeat     time.Duration
}

// NewHandler creates a websocket handler.
func NewHandler(sessions *session.Lifecycle, registry *Registry, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		sessions:      sessions,
		registry:      registry,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		tick:          session.TickInterval,
		heartbeat:     session.HeartbeatInterval,
	}
}

// RegisterRoutes registers the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/sessions/{id}", h.ServeHTTP)
}

// ServeHTTP authorizes the caller, then runs the session's view for the
// lifetime of the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor := identity.ActorFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")
	slog.Info("live connection request", "user_id", actor.UserID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !actor.Authenticated() {
		api.WriteError(w, apperr.ErrUnauthenticated)
		return
	}
	sess, err := h.sessions.Get(r.Context(), actor, sessionID)
	if err != nil {
		api.WriteError(w, access.ConcealPrivate(err, "session"))
		return
	}
	if sess.Status.Terminal() {
		api.WriteError(w, apperr.New(apperr.KindInvalidTransition, "session already completed"))
		return
	}
	if !h.checkOrigin(r) {
		api.WriteError(w, apperr.New(apperr.KindForbidden, "origin not allowed"))
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "user_id", actor.UserID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "user_id", actor.UserID)
		}
	}()

	c := &conn{ws: ws, view: session.NewView(*sess)}
	h.registry.register(actor.UserID, sess.ID, c)
	defer h.registry.unregister(actor.UserID, sess.ID, c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go c.view.Run(ctx, h.tick, func(secs int, status domain.Status) {
		msg := ServerMessage{Type: TypeTick, ElapsedSeconds: secs, Status: status}
		if err := wsjson.Write(ctx, ws, msg); err != nil {
			slog.Debug("live tick write failed", "session_id", sess.ID, "error", err)
			cancel()
		}
	})

	go h.sessions.KeepAlive(ctx, actor, c.view, h.heartbeat)

	h.commandLoop(ctx, ws, actor, c.view)
	slog.Info("live session ended", "user_id", actor.UserID, "session_id", sess.ID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// commandLoop applies client commands until the connection closes or the
// session is completed.
func (h *Handler) commandLoop(ctx context.Context, ws *websocket.Conn, actor access.Actor, view *session.View) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("websocket closed", "user_id", actor.UserID)
			} else {
				slog.Warn("websocket read error", "error", err, "user_id", actor.UserID)
			}
			return
		}

		var reply ServerMessage
		switch msg.Type {
		case CommandPause, CommandResume:
			var err error
			if msg.Type == CommandPause {
				err = view.Pause()
			} else {
				err = view.Resume()
			}
			if err != nil {
				reply = errorMessage(err)
				break
			}
			reply = ServerMessage{Type: TypeStatus, ElapsedSeconds: view.ElapsedSeconds(), Status: view.Status()}
		case CommandComplete:
			sess, err := h.sessions.CompleteView(ctx, actor, view)
			if err != nil {
				reply = errorMessage(err)
				break
			}
			if err := wsjson.Write(ctx, ws, completedMessage(sess)); err != nil {
				slog.Debug("failed to send completion", "session_id", sess.ID, "error", err)
			}
			return
		default:
			reply = errorMessage(apperr.Newf(apperr.KindValidation, "unknown command %q", msg.Type))
		}

		if err := wsjson.Write(ctx, ws, reply); err != nil {
			slog.Debug("websocket write failed", "error", err, "user_id", actor.UserID)
			return
		}
	}
}
