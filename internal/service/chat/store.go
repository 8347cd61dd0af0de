package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrHistoryShrunk   = errors.New("history may only grow")
)

// Store keeps sessions and their histories for as long as the session lives.
type Store interface {
	Create(ctx context.Context, session chat.Session) error
	Get(ctx context.Context, sessionID string) (chat.Session, error)
	LoadHistory(ctx context.Context, sessionID string) (chat.History, error)
	// SaveHistory replaces the stored history. The stored history must be a
	// prefix of the new one.
	SaveHistory(ctx context.Context, sessionID string, history chat.History) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps sessions in process memory. A session idle for longer
// than the TTL since its last write is dropped, matching RedisStore's expiry.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]chat.Session
	histories map[string]chat.History
	touched   map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore returns an empty MemoryStore. A non-positive ttl keeps
// sessions until Delete.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]chat.Session),
		histories: make(map[string]chat.History),
		touched:   make(map[string]time.Time),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	s.sessions[session.ID] = session
	s.histories[session.ID] = chat.History{}
	s.touched[session.ID] = now
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live(sessionID, s.now()) {
		return chat.Session{}, ErrSessionNotFound
	}
	return s.sessions[sessionID], nil
}

func (s *MemoryStore) LoadHistory(_ context.Context, sessionID string) (chat.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live(sessionID, s.now()) {
		return chat.History{}, ErrSessionNotFound
	}
	return s.histories[sessionID], nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, sessionID string, history chat.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.live(sessionID, now) {
		return ErrSessionNotFound
	}
	if !history.HasPrefix(s.histories[sessionID]) {
		return ErrHistoryShrunk
	}
	s.histories[sessionID] = history
	s.touched[sessionID] = now
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live(sessionID, s.now()) {
		return ErrSessionNotFound
	}
	s.drop(sessionID)
	return nil
}

// live reports whether sessionID exists and has not expired, dropping it
// when it has. Caller holds s.mu.
func (s *MemoryStore) live(sessionID string, now time.Time) bool {
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	if s.expired(sessionID, now) {
		s.drop(sessionID)
		return false
	}
	return true
}

func (s *MemoryStore) expired(sessionID string, now time.Time) bool {
	return s.ttl > 0 && now.Sub(s.touched[sessionID]) > s.ttl
}

// sweep drops every expired session, at most once per TTL. Caller holds s.mu.
func (s *MemoryStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id := range s.sessions {
		if s.expired(id, now) {
			s.drop(id)
		}
	}
}

func (s *MemoryStore) drop(sessionID string) {
	delete(s.sessions, sessionID)
	delete(s.histories, sessionID)
	delete(s.touched, sessionID)
}
