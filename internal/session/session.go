package session

import (
	"sort"
	"sync"
	"time"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/google/uuid"
)

// Session is one browser's dashboard context. Values are never mutated after
// Put; an upload or a new selection stores a fresh Session.
type Session struct {
	ID        string
	Dataset   *dataset.Dataset
	Selection chart.Request
	CreatedAt time.Time
	SeenAt    time.Time
}

// DefaultSelection mirrors the dropdown defaults: first column on both axes, line chart.
func DefaultSelection(ds *dataset.Dataset) chart.Request {
	names := ds.ColumnNames()
	req := chart.Request{Kind: chart.Line}
	if len(names) > 0 {
		req.X, req.Y = names[0], names[0]
	}
	return req
}

// Store keeps sessions in memory.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
}

// NewStore returns a store that forgets sessions idle for ttl and keeps at
// most maxSessions of them. Zero values disable the respective limit.
func NewStore(ttl time.Duration, maxSessions int) *Store {
	return &Store{sessions: make(map[string]*Session), ttl: ttl, max: maxSessions, now: time.Now}
}

// Create stores ds under a new session ID.
func (s *Store) Create(ds *dataset.Dataset) *Session {
	return s.Replace(uuid.NewString(), ds)
}

// Replace swaps the dataset of session id wholesale, resetting the selection.
func (s *Store) Replace(id string, ds *dataset.Dataset) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess := &Session{ID: id, Dataset: ds, Selection: DefaultSelection(ds), CreatedAt: now, SeenAt: now}
	s.sessions[id] = sess
	s.pruneLocked(now)
	return sess
}

// Get returns the session and marks it as seen.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}
	cp := *sess
	cp.SeenAt = now
	s.sessions[id] = &cp
	return &cp, true
}

// Select records the latest selection for session id.
func (s *Store) Select(id string, req chart.Request) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *sess
	cp.Selection = req
	cp.SeenAt = s.now()
	s.sessions[id] = &cp
	return &cp, true
}

// Delete forgets session id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.SeenAt) > s.ttl
}

func (s *Store) pruneLocked(now time.Time) {
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
		}
	}
	if s.max <= 0 || len(s.sessions) <= s.max {
		return
	}
	// evict least recently seen
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SeenAt.Before(all[j].SeenAt) })
	for _, sess := range all[:len(all)-s.max] {
		delete(s.sessions, sess.ID)
	}
}
