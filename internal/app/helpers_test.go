package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mediconnect/realtime/internal/core"
	"github.com/mediconnect/realtime/internal/domain"
)

// fakeConn captures every frame pushed at it.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// events decodes every captured frame into a generic map.
func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ev := range f.events(t) {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func newTestSession(userID string, role domain.Role) (*core.Session, *fakeConn) {
	conn := &fakeConn{}
	sess := core.NewSession(domain.Identity{ID: domain.UserID(userID), Role: role}, conn)
	return sess, conn
}
