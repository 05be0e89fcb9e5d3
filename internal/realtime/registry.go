package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transport is the outbound side of a client connection. Implementations
// must make TrySend non-blocking and Close/Ping safe to call concurrently.
type Transport interface {
	// TrySend enqueues a prepared message. It returns false when the
	// connection's outbound queue is full or the connection is closed.
	TrySend(msg []byte) bool
	// Ping sends a transport-level liveness probe.
	Ping() error
	// Close shuts the connection down. Safe to call more than once.
	Close() error
	// Open reports whether the connection is still usable.
	Open() bool
}

// connection is the registry-owned record for one client. It never leaves
// the registry; readers get ConnInfo copies via Snapshot.
type connection struct {
	id            string
	transport     Transport
	userID        *int64
	departmentID  *int64
	subjects      map[string]struct{}
	authenticated bool
	alive         bool
}

// ConnInfo is a point-in-time, read-only view of a registered connection.
type ConnInfo struct {
	ID            string
	UserID        *int64
	DepartmentID  *int64
	Subjects      map[string]struct{}
	Authenticated bool
	Transport     Transport
}

// HasSubject reports whether the connection subscribed to the given subject.
func (ci ConnInfo) HasSubject(subject string) bool {
	_, ok := ci.Subjects[subject]
	return ok
}

// Registry tracks live connections and their routing metadata. All methods
// are safe for concurrent use; Snapshot copies are iterated without holding
// the registry lock so slow sends never stall registration.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*connection
	logger *zap.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		conns:  make(map[string]*connection),
		logger: logger,
	}
}

// Register admits a new unauthenticated connection and returns its id.
func (r *Registry) Register(t Transport) string {
	id := uuid.New().String()
	r.mu.Lock()
	r.conns[id] = &connection{
		id:        id,
		transport: t,
		subjects:  make(map[string]struct{}),
		alive:     true,
	}
	n := len(r.conns)
	r.mu.Unlock()
	r.logger.Debug("connection registered", zap.String("conn_id", id), zap.Int("total", n))
	return id
}

// Authenticate binds identity metadata to a connection. Calling it again on
// the same connection overwrites the previous binding. Unknown ids are a
// silent no-op (the connection already closed).
func (r *Registry) Authenticate(id string, userID int64, departmentID *int64, subjects []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return
	}
	uid := userID
	c.userID = &uid
	if departmentID != nil {
		dep := *departmentID
		c.departmentID = &dep
	} else {
		c.departmentID = nil
	}
	c.subjects = make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		c.subjects[s] = struct{}{}
	}
	c.authenticated = true
}

// Unregister removes a connection. Safe to call multiple times.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	n := len(r.conns)
	r.mu.Unlock()
	if ok {
		r.logger.Debug("connection unregistered", zap.String("conn_id", id), zap.Int("total", n))
	}
}

// Snapshot returns a point-in-time copy of every registered connection for
// lock-free iteration by the dispatcher and the heartbeat monitor.
func (r *Registry) Snapshot() []ConnInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnInfo, 0, len(r.conns))
	for _, c := range r.conns {
		subjects := make(map[string]struct{}, len(c.subjects))
		for s := range c.subjects {
			subjects[s] = struct{}{}
		}
		out = append(out, ConnInfo{
			ID:            c.id,
			UserID:        c.userID,
			DepartmentID:  c.departmentID,
			Subjects:      subjects,
			Authenticated: c.authenticated,
			Transport:     c.transport,
		})
	}
	return out
}

// MarkAlive records a heartbeat response for the connection.
func (r *Registry) MarkAlive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[id]; ok {
		c.alive = true
	}
}

// MarkPendingPing clears the alive flag ahead of (or after a failed) probe;
// the connection must answer with a pong before the next sweep or be evicted.
func (r *Registry) MarkPendingPing(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[id]; ok {
		c.alive = false
	}
}

// IsAliveAndClear reports whether the connection answered the previous probe
// and clears the flag for the next round. Unknown ids report false.
func (r *Registry) IsAliveAndClear(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return false
	}
	alive := c.alive
	c.alive = false
	return alive
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every transport and empties the registry. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*connection)
	r.mu.Unlock()
	for _, c := range conns {
		_ = c.transport.Close()
	}
}
