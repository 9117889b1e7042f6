package sync

import (
	"context"
	"log"
	"sync"
	"time"
)

// scheduler rate-limits and serializes fetch cycles for one mailbox.
// Non-forced requests inside the minimum interval are no-ops; any request
// while a cycle is running is dropped, not queued.
type scheduler struct {
	mu          sync.Mutex
	lastSync    time.Time
	inProgress  bool
	minInterval time.Duration
	run         func(ctx context.Context) error
	mailboxID   string
}

func newScheduler(mailboxID string, minInterval time.Duration, run func(ctx context.Context) error) *scheduler {
	return &scheduler{
		minInterval: minInterval,
		run:         run,
		mailboxID:   mailboxID,
	}
}

// RequestSync runs one fetch cycle if allowed. Returns whether a cycle ran.
// The cycle executes on the caller's goroutine and runs to completion; the
// in-progress flag clears on success or failure alike.
func (s *scheduler) RequestSync(ctx context.Context, force bool) bool {
	s.mu.Lock()
	if !force && time.Since(s.lastSync) < s.minInterval {
		s.mu.Unlock()
		return false
	}
	if s.inProgress {
		s.mu.Unlock()
		return false
	}
	s.inProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inProgress = false
		s.lastSync = time.Now()
		s.mu.Unlock()
	}()

	if err := s.run(ctx); err != nil {
		log.Printf("sync: mailbox %s: fetch cycle failed: %v", s.mailboxID, err)
	}

	return true
}
