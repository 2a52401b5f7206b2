// Package scheduler runs the periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openshelf/openshelf/internal/database/sessions"
)

// SessionSweeper periodically deletes long-expired session rows. Expired
// sessions are already invisible to reads via the expiry predicate, so
// this is storage hygiene only; skipping a run is harmless.
type SessionSweeper struct {
	sessions *sessions.Repository
	schedule string

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewSessionSweeper creates a sweeper with a standard 5-field cron schedule.
func NewSessionSweeper(sessionRepo *sessions.Repository, schedule string) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessionRepo,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the sweep schedule.
func (s *SessionSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, s.runSweep)
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Session sweep scheduler: started with schedule %q", s.schedule)
	return nil
}

// Stop halts the schedule, waiting for an in-flight sweep to finish.
func (s *SessionSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	log.Printf("Session sweep scheduler: stopped")
}

func (s *SessionSweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	swept, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Printf("Session sweep failed: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("Session sweep removed %d expired sessions", swept)
	}
}
