package events

import (
	"sync"

	"go.uber.org/zap"
)

// Conn is the write side of one live project-scoped connection. The
// websocket handler adapts *websocket.Conn to it; tests supply fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Registry tracks live connections per project and delivers targeted
// JSON events to them. A connection that errors on write is presumed
// dead and dropped on the spot, never retried.
type Registry struct {
	mu    sync.Mutex
	conns map[int64][]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[int64][]Conn),
	}
}

func (r *Registry) Connect(conn Conn, projectID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[projectID] = append(r.conns[projectID], conn)
	zap.S().Named("registry").Infof("connection added for project %d", projectID)
}

// Disconnect removes the connection; the project key is dropped once
// its set is empty. Idempotent.
func (r *Registry) Disconnect(conn Conn, projectID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnect(conn, projectID)
}

// disconnect must be called with the registry locked.
func (r *Registry) disconnect(conn Conn, projectID int64) {
	conns, ok := r.conns[projectID]
	if !ok {
		return
	}
	for i, c := range conns {
		if c == conn {
			r.conns[projectID] = append(conns[:i], conns[i+1:]...)
			zap.S().Named("registry").Infof("connection removed for project %d", projectID)
			break
		}
	}
	if len(r.conns[projectID]) == 0 {
		delete(r.conns, projectID)
	}
}

// SendProjectUpdate delivers the message to every connection watching
// the project. Connections failing the write are disconnected.
func (r *Registry) SendProjectUpdate(projectID int64, message ProjectEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.conns[projectID]
	if !ok {
		return
	}

	var dead []Conn
	for _, conn := range conns {
		if err := conn.WriteJSON(message); err != nil {
			zap.S().Named("registry").Errorf("error sending project update: %v", err)
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		r.disconnect(conn, projectID)
	}
}

func (r *Registry) ConnectionCount(projectID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[projectID])
}

// Close drops and closes every connection.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for projectID, conns := range r.conns {
		for _, conn := range conns {
			_ = conn.Close()
		}
		delete(r.conns, projectID)
	}
}
