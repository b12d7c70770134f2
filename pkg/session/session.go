// Package session tracks live viewer sessions.
//
// A session is one mounted [viewer.Viewer] bound to one client connection.
// Its state lives only as long as the connection: nothing is persisted, and
// closing the connection discards the viewer along with its selection and
// history.
//
// # Usage
//
//	reg := session.NewRegistry(200)
//
//	sess, err := reg.Open(ctx, v)
//	if errors.Is(err, errors.ErrCodeSessionLimit) {
//	    // reject the connection
//	}
//	defer reg.Close(ctx, sess.ID)
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/observability"
	"github.com/matzehuels/ecomap/pkg/viewer"
)

// Session is one live viewer.
type Session struct {
	ID        string
	Viewer    *viewer.Viewer
	CreatedAt time.Time

	mu sync.Mutex
}

// Do runs fn with exclusive access to the session's viewer.
func (s *Session) Do(fn func(v *viewer.Viewer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.Viewer)
}

// Age returns how long the session has been open.
func (s *Session) Age() time.Duration {
	return time.Since(s.CreatedAt)
}

// GenerateID creates a random session id.
func GenerateID() string {
	return uuid.NewString()
}

// Registry holds the open sessions of one server.
type Registry struct {
	max int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry admitting at most max concurrent sessions.
// A max of zero or less means unlimited.
func NewRegistry(max int) *Registry {
	return &Registry{max: max, sessions: make(map[string]*Session)}
}

// Open registers v under a new id. It fails with a *errors.LimitError when
// the registry is full.
func (r *Registry) Open(ctx context.Context, v *viewer.Viewer) (*Session, error) {
	if v == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "session needs a viewer")
	}
	r.mu.Lock()
	if r.max > 0 && len(r.sessions) >= r.max {
		r.mu.Unlock()
		return nil, &errors.LimitError{Limit: r.max, Resource: "session"}
	}
	s := &Session{ID: GenerateID(), Viewer: v, CreatedAt: time.Now()}
	r.sessions[s.ID] = s
	r.mu.Unlock()

	observability.Viewer().OnSessionStart(ctx, s.ID)
	return s, nil
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Close removes a session. It reports whether the session was open.
func (r *Registry) Close(ctx context.Context, id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		observability.Viewer().OnSessionEnd(ctx, id, s.Age())
	}
	return ok
}

// CloseAll removes every session.
func (r *Registry) CloseAll(ctx context.Context) int {
	ids := r.IDs()
	for _, id := range ids {
		r.Close(ctx, id)
	}
	return len(ids)
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Max returns the session cap, zero when unlimited.
func (r *Registry) Max() int {
	if r.max < 0 {
		return 0
	}
	return r.max
}

// IDs returns the open session ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
