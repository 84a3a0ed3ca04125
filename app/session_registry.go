package app

import (
	"sync"
	"time"

	"gridsheet/internal"
)

// SpreadsheetFactory builds the spreadsheet service for a new session
type SpreadsheetFactory func() *SpreadsheetService

// SessionRegistry keeps one spreadsheet per browser session
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*SpreadsheetService
	factory  SpreadsheetFactory
	logger   *internal.Logger
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry(factory SpreadsheetFactory, logger *internal.Logger) *SessionRegistry {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SessionRegistry{
		sessions: make(map[string]*SpreadsheetService),
		factory:  factory,
		logger:   logger.Named("Sessions"),
	}
}

// Get returns the spreadsheet of session id, creating it on first use
func (r *SessionRegistry) Get(id string) *SpreadsheetService {
	r.mu.Lock()
	defer r.mu.Unlock()

	if svc, ok := r.sessions[id]; ok {
		return svc
	}
	svc := r.factory()
	r.sessions[id] = svc
	r.logger.Debug("Created spreadsheet for session %s", id)
	return svc
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops sessions unused for longer than idle and returns how many were dropped
func (r *SessionRegistry) Prune(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, svc := range r.sessions {
		if svc.IdleSince().Before(cutoff) {
			delete(r.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		r.logger.Info("Pruned %d idle sessions", dropped)
	}
	return dropped
}
