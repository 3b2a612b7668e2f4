// Package session holds per-conversation state behind an explicit store
// keyed by opaque session ids. Handlers receive a Store; nothing reads
// session state from globals.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = eris.New("session: not found")

// Message is one chat turn stored with a session.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is the state of one analysis conversation.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ContractText string    `json:"-"`
	Language     string    `json:"language"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeen     time.Time `json:"last_seen"`
}

// Store is the explicit session lifecycle: create, read, update, expire.
type Store interface {
	Create(ctx context.Context, userID, contractText, language string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	UpdateLanguage(ctx context.Context, id, language string) error
	AppendMessage(ctx context.Context, id string, msg Message) error
	Expire(ctx context.Context, id string) error
}

// MemoryStore is an in-memory Store with TTL-based expiry.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewMemoryStore creates a store whose sessions expire after ttl of
// inactivity. A background sweep reclaims expired sessions.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Close stops the expiry sweep.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, sess := range s.sessions {
				if now.Sub(sess.LastSeen) > s.ttl {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *MemoryStore) Create(_ context.Context, userID, contractText, language string) (*Session, error) {
	if language == "" {
		language = "en"
	}
	now := time.Now()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		ContractText: contractText,
		Language:     language,
		CreatedAt:    now,
		LastSeen:     now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return cloneSession(sess), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || time.Since(sess.LastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	sess.LastSeen = time.Now()
	return cloneSession(sess), nil
}

func (s *MemoryStore) UpdateLanguage(_ context.Context, id, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Language = language
	sess.LastSeen = time.Now()
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, id string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if msg.At.IsZero() {
		msg.At = time.Now()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastSeen = time.Now()
	return nil
}

func (s *MemoryStore) Expire(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// cloneSession returns a copy so callers never share the store's mutable
// state.
func cloneSession(sess *Session) *Session {
	out := *sess
	out.Messages = append([]Message{}, sess.Messages...)
	return &out
}
