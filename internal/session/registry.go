package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Registry keeps live sessions by id. A video has at most one session: adding
// a new one for the same video closes the previous.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byVideo  map[string]string
	idle     time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewRegistry returns a registry expiring sessions idle for longer than idle.
// A zero idle disables expiry.
func NewRegistry(idle time.Duration, log logrus.FieldLogger) *Registry {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	return &Registry{
		sessions: make(map[string]*Session),
		byVideo:  make(map[string]string),
		idle:     idle,
		now:      time.Now,
		log:      log,
	}
}

// Add stores s, closing any session it replaces.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	var replaced *Session
	if s.VideoID != "" {
		if id, ok := r.byVideo[s.VideoID]; ok {
			replaced = r.sessions[id]
			delete(r.sessions, id)
		}
		r.byVideo[s.VideoID] = s.ID
	}
	r.sessions[s.ID] = s
	r.mu.Unlock()

	if replaced != nil {
		replaced.Close()
		r.log.WithFields(logrus.Fields{"session": replaced.ID, "video_id": s.VideoID}).Info("session replaced")
	}
}

// Get returns a session and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		r.forget(s)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes every session idle past the limit and returns how many went.
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var expired []*Session
	for _, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			r.forget(s)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.log.WithField("expired", len(expired)).Info("swept idle sessions")
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	if r.idle <= 0 {
		return
	}
	interval := max(r.idle/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll closes every session, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	r.byVideo = make(map[string]string)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

func (r *Registry) forget(s *Session) {
	delete(r.sessions, s.ID)
	if r.byVideo[s.VideoID] == s.ID {
		delete(r.byVideo, s.VideoID)
	}
}
