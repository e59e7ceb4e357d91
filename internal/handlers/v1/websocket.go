package v1

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/refurbd/renovation-planner/internal/events"
	"go.uber.org/zap"
)

// wsConn serializes writes: the registry publishes from other
// goroutines while the read loop answers pings, and gorilla permits
// only one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) writeText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the cors middleware on the
	// HTTP side; the upgrade itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProjectWebsocket answers GET /ws/projects/{id}. Token and ownership
// are checked once at connect time; after the greeting the connection
// only receives pushed project events and answers liveness pings.
func (h *ServiceHandler) ProjectWebsocket(w http.ResponseWriter, r *http.Request) {
	log := zap.S().Named("ws_handler")

	projectID, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		if cookie, err := r.Cookie("access_token"); err == nil {
			token = cookie.Value
		}
	}
	user, err := h.authenticator.AuthenticateToken(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	project, err := h.store.Project().Get(r.Context(), projectID)
	if err != nil || project.UserID != user.ID {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("failed to upgrade connection: %v", err)
		return
	}
	conn := &wsConn{conn: raw}

	registry := h.publisher.Registry()
	registry.Connect(conn, projectID)
	defer func() {
		registry.Disconnect(conn, projectID)
		_ = conn.Close()
	}()

	greeting := events.ProjectEvent{
		Type:      events.ProjectEventConnected,
		ProjectID: projectID,
		Status:    string(project.Status),
	}
	if err := conn.WriteJSON(greeting); err != nil {
		log.Errorf("failed to send greeting: %v", err)
		return
	}

	// Read loop: answer pings, ignore everything else. Exits on any
	// read error, which is how client disconnects surface.
	for {
		msgType, data, err := raw.ReadMessage()
		if err != nil {
			log.Infof("websocket closed for project %d: %v", projectID, err)
			return
		}
		if msgType == websocket.TextMessage && string(data) == "ping" {
			if err := conn.writeText([]byte("pong")); err != nil {
				return
			}
		}
	}
}
