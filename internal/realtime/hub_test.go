package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeEnvelopes(t *testing.T, raw [][]byte) []Envelope {
	t.Helper()
	out := make([]Envelope, 0, len(raw))
	for _, msg := range raw {
		var env Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		out = append(out, env)
	}
	return out
}

func TestBroadcastEmptyFilterReachesEveryOpenConnection(t *testing.T) {
	reg := NewRegistry(nil)
	hub := NewHub(reg, nil)

	authed := &fakeTransport{}
	unauthed := &fakeTransport{}
	id := reg.Register(authed)
	reg.Register(unauthed)
	reg.Authenticate(id, 1, int64p(5), []string{"Math"})

	hub.Broadcast("announcement", map[string]string{"msg": "hi"}, Filter{})

	require.Len(t, authed.sent(), 1)
	require.Len(t, unauthed.sent(), 1)

	envs := decodeEnvelopes(t, authed.sent())
	require.Equal(t, "announcement", envs[0].Type)
}

func TestBroadcastDepartmentFilter(t *testing.T) {
	reg := NewRegistry(nil)
	hub := NewHub(reg, nil)

	dept5 := &fakeTransport{}
	dept7 := &fakeTransport{}
	unauthed := &fakeTransport{}
	id5 := reg.Register(dept5)
	id7 := reg.Register(dept7)
	reg.Register(unauthed)
	reg.Authenticate(id5, 1, int64p(5), nil)
	reg.Authenticate(id7, 2, int64p(7), nil)

	hub.SendToDepartment("x", map[string]int{}, 5)

	require.Len(t, dept5.sent(), 1)
	require.Empty(t, dept7.sent())
	require.Empty(t, unauthed.sent())
}

func TestBroadcastSubjectFilter(t *testing.T) {
	reg := NewRegistry(nil)
	hub := NewHub(reg, nil)

	math := &fakeTransport{}
	physics := &fakeTransport{}
	unauthed := &fakeTransport{}
	idM := reg.Register(math)
	idP := reg.Register(physics)
	reg.Register(unauthed)
	reg.Authenticate(idM, 1, nil, []string{"Math"})
	reg.Authenticate(idP, 2, nil, []string{"Physics"})

	hub.SendToSubject("x", map[string]int{}, "Math")

	require.Len(t, math.sent(), 1)
	require.Empty(t, physics.sent())
	require.Empty(t, unauthed.sent())
}

func TestBroadcastIncludeAndExcludeUser(t *testing.T) {
	reg := NewRegistry(nil)
	hub := NewHub(reg, nil)

	alice := &fakeTransport{}
	bob := &fakeTransport{}
	idA := reg.Register(alice)
	idB := reg.Register(bob)
	reg.Authenticate(idA, 1, nil, nil)
	reg.Authenticate(idB, 2, nil, nil)

	hub.SendToUser("direct", "payload", 1)
	require.Len(t, alice.sent(), 1)
	require.Empty(t, bob.sent())

	hub.Broadcast("everyone-else", "payload", Filter{ExcludeUser: int64p(1)})
	require.Len(t, alice.sent(), 1)
	require.Len(t, bob.sent(), 1)
}

func TestBroadcastCombinedFilterIsANDed(t *testing.T) {
	reg := NewRegistry(nil)
	hub := NewHub(reg, nil)

	match := &fakeTransport{}
	wrongSubject := &fakeTransport{}
	idM := reg.Register(match)
	idW := reg.Register(wrongSubject)
	reg.Authenticate(idM, 1, int64p(5), []string{"Math"})
	reg.Authenticate(idW, 2, int64p(5), []string{"Physics"})

	hub.Broadcast("x", nil, Filter{DepartmentID: int64p(5), Subject: "Math"})

	require.Len(t, match.sent(), 1)
	require.Empty(t, wrongSubject.sent())
}

func TestBroadcastSkipsClosedTransport(t *testing.T) {
	reg := NewRegistry(nil)
	hub := NewHub(reg, nil)

	open := &fakeTransport{}
	closed := &fakeTransport{closed: true}
	reg.Register(open)
	reg.Register(closed)

	hub.Broadcast("x", nil, Filter{})

	require.Len(t, open.sent(), 1)
	require.Empty(t, closed.sent())
}

func TestBroadcastQueueOverflowClosesConnection(t *testing.T) {
	reg := NewRegistry(nil)
	hub := NewHub(reg, nil)

	slow := &fakeTransport{full: true}
	healthy := &fakeTransport{}
	reg.Register(slow)
	reg.Register(healthy)

	hub.Broadcast("x", nil, Filter{})

	// the slow peer gets closed; delivery to others is unaffected
	require.False(t, slow.Open())
	require.Len(t, healthy.sent(), 1)
}

func TestBroadcastSerializesOnce(t *testing.T) {
	reg := NewRegistry(nil)
	hub := NewHub(reg, nil)

	a := &fakeTransport{}
	b := &fakeTransport{}
	reg.Register(a)
	reg.Register(b)

	hub.Broadcast("x", map[string]int{"n": 1}, Filter{})

	require.Equal(t, a.sent()[0], b.sent()[0])
}
