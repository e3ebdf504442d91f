package service

import (
	"sync"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-interview/internal/session"
)

// Registry holds the live sessions of this process keyed by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*session.Session)}
}

func (r *Registry) Put(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *Registry) Get(id uuid.UUID) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns the live sessions at the time of the call.
func (r *Registry) List() []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
