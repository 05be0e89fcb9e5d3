package realtime

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Envelope is the server-to-client message shape: one JSON object per
// WebSocket message, {"type": ..., "data": ...}.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Filter selects the subset of connections a broadcast goes to. All set
// fields are ANDed. The zero Filter matches every open connection.
type Filter struct {
	IncludeUser  *int64
	ExcludeUser  *int64
	DepartmentID *int64
	Subject      string
}

func (f Filter) matches(ci ConnInfo) bool {
	if f.ExcludeUser != nil && ci.UserID != nil && *ci.UserID == *f.ExcludeUser {
		return false
	}
	if f.IncludeUser != nil {
		if ci.UserID == nil || *ci.UserID != *f.IncludeUser {
			return false
		}
	}
	if f.DepartmentID != nil {
		if ci.DepartmentID == nil || *ci.DepartmentID != *f.DepartmentID {
			return false
		}
	}
	if f.Subject != "" && !ci.HasSubject(f.Subject) {
		return false
	}
	return true
}

// Hub fans events out to the matching subset of registered connections.
// Delivery is best effort: at most once per connection per call, no retry,
// and a slow or dead peer never blocks the caller or other recipients.
type Hub struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHub creates a dispatcher over the given registry.
func NewHub(registry *Registry, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{registry: registry, logger: logger}
}

// Registry exposes the hub's connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Broadcast serializes the event once and enqueues it on every connection
// the filter matches. Per-connection failures are logged and skipped; a
// full outbound queue closes the connection so the heartbeat sweep reaps it.
func (h *Hub) Broadcast(event string, payload interface{}, f Filter) {
	data, err := json.Marshal(Envelope{Type: event, Data: payload})
	if err != nil {
		h.logger.Warn("broadcast marshal failed", zap.String("event", event), zap.Error(err))
		return
	}
	for _, ci := range h.registry.Snapshot() {
		if !ci.Transport.Open() {
			continue
		}
		if !f.matches(ci) {
			continue
		}
		if !ci.Transport.TrySend(data) {
			h.logger.Warn("send queue full, closing connection",
				zap.String("conn_id", ci.ID), zap.String("event", event))
			_ = ci.Transport.Close()
		}
	}
}

// SendToUser broadcasts to the connections bound to a single user.
func (h *Hub) SendToUser(event string, payload interface{}, userID int64) {
	h.Broadcast(event, payload, Filter{IncludeUser: &userID})
}

// SendToDepartment broadcasts to every connection in a department.
func (h *Hub) SendToDepartment(event string, payload interface{}, departmentID int64) {
	h.Broadcast(event, payload, Filter{DepartmentID: &departmentID})
}

// SendToSubject broadcasts to every connection subscribed to a subject.
func (h *Hub) SendToSubject(event string, payload interface{}, subject string) {
	h.Broadcast(event, payload, Filter{Subject: subject})
}
