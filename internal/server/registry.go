package server

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"videorag/internal/service"
)

// Factory builds a fresh session with its own index state.
type Factory func(id string) (*service.Session, error)

var errSessionNotFound = errors.New("session not found")

// Registry holds the live sessions keyed by UUID.
type Registry struct {
	factory Factory

	mu       sync.RWMutex
	sessions map[string]*service.Session
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{factory: factory, sessions: make(map[string]*service.Session)}
}

// Create builds and registers a new session.
func (r *Registry) Create() (*service.Session, error) {
	id := uuid.NewString()
	sess, err := r.factory(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()
	return sess, nil
}

func (r *Registry) Get(id string) (*service.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errSessionNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, errSessionNotFound
	}
	return sess, nil
}

// List returns the session ids in lexical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete unregisters and closes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return errSessionNotFound
	}
	return sess.Close()
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sess := range r.sessions {
		_ = sess.Close()
		delete(r.sessions, id)
	}
}
