package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/internal/withdrawal"
	"github.com/Aidin1998/finalex-console/pkg/errors"
)

// WizardFactory builds a closed wizard for a new session.
type WizardFactory func() (*withdrawal.Wizard, error)

type session struct {
	wizard   *withdrawal.Wizard
	lastSeen time.Time
}

// SessionStore keeps one wizard per open send-funds dialog. Sessions idle
// for longer than ttl are closed by Sweep.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	factory  WizardFactory
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewSessionStore creates a store. A zero ttl disables expiry.
func NewSessionStore(factory WizardFactory, ttl time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*session),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create registers a new closed wizard and returns its session id.
func (s *SessionStore) Create() (uuid.UUID, *withdrawal.Wizard, error) {
	w, err := s.factory()
	if err != nil {
		return uuid.Nil, nil, err
	}
	id := uuid.New()

	s.mu.Lock()
	s.sessions[id] = &session{wizard: w, lastSeen: s.now()}
	s.mu.Unlock()
	return id, w, nil
}

// Get returns the wizard of a session and refreshes its idle timer.
func (s *SessionStore) Get(id uuid.UUID) (*withdrawal.Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.ErrNotFound.Explain("session %s not found", id)
	}
	sess.lastSeen = s.now()
	return sess.wizard, nil
}

// Remove closes the session's wizard and forgets it.
func (s *SessionStore) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.wizard.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the ttl and returns how many
// were removed.
func (s *SessionStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	var expired []*session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.wizard.Close()
	}
	if len(expired) > 0 {
		s.logger.Info("Expired idle withdrawal sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes every session.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionStore) closeAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[uuid.UUID]*session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.wizard.Close()
	}
}
