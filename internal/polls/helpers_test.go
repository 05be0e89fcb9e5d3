package polls

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edupulse/backend/internal/realtime"
)

// countingTransport implements realtime.Transport and records every
// delivered envelope for assertions.
type countingTransport struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (t *countingTransport) TrySend(msg []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.msgs = append(t.msgs, msg)
	return true
}

func (t *countingTransport) Ping() error { return nil }

func (t *countingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *countingTransport) Open() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

func (t *countingTransport) countType(tb *testing.T, eventType string) int {
	tb.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, msg := range t.msgs {
		var env realtime.Envelope
		require.NoError(tb, json.Unmarshal(msg, &env))
		if env.Type == eventType {
			n++
		}
	}
	return n
}
