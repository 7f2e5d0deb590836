package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// TaskAccess reports whether userID may follow a task's room.
type TaskAccess func(ctx context.Context, userID, taskID string) (bool, error)

// Handler upgrades GET /api/ws. Browsers cannot set headers on a websocket
// handshake, so the token may also arrive as ?token=.
type Handler struct {
	Hub      *Hub
	Verifier jwtx.Verifier
	Roles    httpx.RoleLookup
	CanView  TaskAccess

	// AllowedOrigins are accepted in addition to same-host origins.
	AllowedOrigins []string
}

type clientMessage struct {
	Action string `json:"action"`
	TaskID string `json:"taskId"`
}

type serverMessage struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw, ok := httpx.BearerToken(r)
	if !ok {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, httpx.MsgNoToken)
		return
	}
	claims, err := h.Verifier.Verify(raw)
	if err != nil {
		log.Warn("websocket token rejected", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, httpx.MsgInvalidToken)
		return
	}

	admin := h.isAdmin(ctx, claims)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Debug("websocket upgrade failed", "err", err)
		return
	}

	c := newClient(h.Hub, conn, claims.UserID)
	h.Hub.register(c)
	if admin {
		h.Hub.Subscribe(c, domain.TopicAdmins)
	}
	c.reply(serverMessage{Type: "connected"})
	log.Info("websocket connected", "user_id", claims.UserID, "admin", admin)

	go c.writePump()
	c.readPump(func(c *Client, msg []byte) { h.handle(ctx, c, msg) })
}

// isAdmin confirms an admin claim against the store so a demoted user does
// not keep receiving admin events on a long-lived socket.
func (h *Handler) isAdmin(ctx context.Context, claims jwtx.Claims) bool {
	if claims.Role != domain.RoleAdmin {
		return false
	}
	if h.Roles == nil {
		return true
	}
	role, found, err := h.Roles(ctx, claims.UserID)
	if err != nil {
		slogx.FromContext(ctx).Error("websocket role lookup failed", "err", err)
		return false
	}
	return found && role == domain.RoleAdmin
}

func (h *Handler) handle(ctx context.Context, c *Client, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(serverMessage{Type: "error", Message: "invalid message"})
		return
	}
	if msg.TaskID == "" && (msg.Action == "join" || msg.Action == "leave") {
		c.reply(serverMessage{Type: "error", Message: "taskId is required"})
		return
	}

	topic := domain.TaskTopic(msg.TaskID)
	switch msg.Action {
	case "join":
		if h.CanView != nil {
			ok, err := h.CanView(ctx, c.userID, msg.TaskID)
			if err != nil {
				slogx.FromContext(ctx).Error("websocket task access check failed", "err", err)
			}
			if !ok {
				c.reply(serverMessage{Type: "error", Topic: topic, Message: "not authorized to follow this task"})
				return
			}
		}
		h.Hub.Subscribe(c, topic)
		c.reply(serverMessage{Type: "joined", Topic: topic})
	case "leave":
		h.Hub.Unsubscribe(c, topic)
		c.reply(serverMessage{Type: "left", Topic: topic})
	default:
		c.reply(serverMessage{Type: "error", Message: "unknown action"})
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(h.AllowedOrigins, origin) || slices.Contains(h.AllowedOrigins, "*") {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
