package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stylefuse/internal/domain"
	"stylefuse/internal/infra"
	"stylefuse/internal/providers/prompt"
)

// StoreOptions configures a Store. TTL <= 0 disables expiry.
type StoreOptions struct {
	Generator prompt.Generator
	Previews  *PreviewRegistry
	Logger    *infra.Logger
	TTL       time.Duration
	Now       func() time.Time
}

// Store keeps live sessions in memory. Nothing outlives the process.
type Store struct {
	generator prompt.Generator
	previews  *PreviewRegistry
	logger    *infra.Logger
	ttl       time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(opts StoreOptions) *Store {
	previews := opts.Previews
	if previews == nil {
		previews = NewPreviewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		generator: opts.Generator,
		previews:  previews,
		logger:    logger,
		ttl:       opts.TTL,
		now:       now,
		sessions:  make(map[string]*Session),
	}
}

// Previews exposes the registry backing every session's preview handles.
func (s *Store) Previews() *PreviewRegistry { return s.previews }

// Create starts a new idle session.
func (s *Store) Create() *Session {
	sess := New(Options{
		Generator: s.generator,
		Previews:  s.previews,
		Logger:    s.logger,
		Now:       s.now,
	})
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session with id or domain.ErrNotFound.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess, nil
}

// Delete ends the session with id and releases its resources.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	sess.Close()
	return nil
}

// Close ends every live session. Used on shutdown.
func (s *Store) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep ends sessions idle for longer than the TTL and returns how many were
// removed. Sessions with a generation in flight are kept.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	var expired []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		snap := sess.Snapshot()
		if snap.Phase == domain.PhaseAnalyzing || snap.UpdatedAt.After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, sess)
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		s.logger.Info().Int("count", len(expired)).Msg("session: expired idle sessions")
	}
	return len(expired)
}

// RunJanitor sweeps on every tick until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Stats counts live sessions by phase.
type Stats struct {
	Sessions  int
	Previews  int
	Idle      int
	Analyzing int
	Success   int
	Error     int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	stats := Stats{Sessions: len(sessions), Previews: s.previews.Len()}
	for _, sess := range sessions {
		switch sess.Snapshot().Phase {
		case domain.PhaseIdle:
			stats.Idle++
		case domain.PhaseAnalyzing:
			stats.Analyzing++
		case domain.PhaseSuccess:
			stats.Success++
		case domain.PhaseError:
			stats.Error++
		}
	}
	return stats
}
