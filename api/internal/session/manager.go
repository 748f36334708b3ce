package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"pipartner/api/internal/conversation"
	"pipartner/api/internal/history"
	"pipartner/api/internal/inference"
	"pipartner/api/internal/kv"
)

// Manager keeps one mounted Session per user scope.
type Manager struct {
	store  kv.Store
	solver inference.Solver
	log    *zap.Logger

	mu sync.Mutex
	m  map[string]*Session
}

func NewManager(store kv.Store, solver inference.Solver, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, solver: solver, log: log, m: make(map[string]*Session)}
}

// Get returns the session for scope, creating and mounting it on first use.
// Mount warnings are returned only by the call that mounted it. A session
// whose history could not be read is not kept, so the next Get mounts again.
func (m *Manager) Get(ctx context.Context, scope string) (*Session, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.m[scope]; ok {
		return s, nil
	}

	ns := kv.Namespace(m.store, scope)
	s := New(m.solver, conversation.NewHolder(ns), history.NewLog(ns), m.log.With(zap.String("scope", scope)))
	warnings := s.Mount(ctx)
	if !s.hist.Loaded() {
		return s, warnings
	}
	m.m[scope] = s
	return s, warnings
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
