package sync

import (
	"context"
	"fmt"
	"log"
	stdsync "sync"
	"time"

	"github.com/relaydesk/relaydesk/internal/crypto"
	"github.com/relaydesk/relaydesk/internal/models"
)

// Options tunes the sync engine. Zero values are replaced with defaults.
type Options struct {
	MinSyncInterval time.Duration
	FetchWindow     int
	ReconnectDelay  time.Duration
	Debounce        time.Duration
	PollFallback    time.Duration
	HealthInterval  time.Duration
}

func (o Options) withDefaults() Options {
	if o.MinSyncInterval == 0 {
		o.MinSyncInterval = 15 * time.Second
	}
	if o.FetchWindow == 0 {
		o.FetchWindow = 10
	}
	if o.ReconnectDelay == 0 {
		o.ReconnectDelay = 30 * time.Second
	}
	if o.Debounce == 0 {
		o.Debounce = 1500 * time.Millisecond
	}
	if o.PollFallback == 0 {
		o.PollFallback = 5 * time.Minute
	}
	if o.HealthInterval == 0 {
		o.HealthInterval = 60 * time.Second
	}
	return o
}

// Supervisor owns one worker per mailbox and is the only place that maps a
// mailbox ID to live session state. Callers trigger syncs and add or remove
// mailboxes through it; they never touch a worker directly.
type Supervisor struct {
	store     Store
	pipeline  *Pipeline
	encryptor *crypto.Encryptor
	opts      Options

	mu      stdsync.Mutex
	workers map[string]*worker

	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

func NewSupervisor(store Store, pipeline *Pipeline, encryptor *crypto.Encryptor, opts Options) *Supervisor {
	return &Supervisor{
		store:     store,
		pipeline:  pipeline,
		encryptor: encryptor,
		opts:      opts.withDefaults(),
		workers:   make(map[string]*worker),
	}
}

// Start loads every configured mailbox and launches a worker for each one
// that carries complete inbound credentials. Incomplete mailboxes are
// logged once and skipped; adding credentials later and calling AddMailbox
// picks them up.
func (s *Supervisor) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	mailboxes, err := s.store.ListMailboxes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mailboxes: %w", err)
	}

	for _, mailbox := range mailboxes {
		if err := s.add(ctx, mailbox); err != nil {
			log.Printf("sync: skipping mailbox %s: %v", mailbox.ID, err)
		}
	}

	s.wg.Add(1)
	go s.healthSweep(ctx)

	log.Printf("sync: supervisor started with %d mailbox(es)", len(s.workers))
	return nil
}

// AddMailbox starts supervising a mailbox that was created or re-credentialed
// after startup.
func (s *Supervisor) AddMailbox(ctx context.Context, mailboxID string) error {
	mailbox, err := s.store.GetMailbox(ctx, mailboxID)
	if err != nil {
		return err
	}
	return s.add(ctx, mailbox)
}

func (s *Supervisor) add(ctx context.Context, mailbox *models.Mailbox) error {
	if !mailbox.HasInboundCredentials() {
		return fmt.Errorf("inbound credentials incomplete")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workers[mailbox.ID]; ok {
		return nil
	}

	w := newWorker(mailbox, s.store, s.pipeline, s.encryptor, s.opts)
	s.workers[mailbox.ID] = w
	w.start(ctx)
	return nil
}

// RemoveMailbox stops the mailbox's worker and waits for its session to
// close. Unknown IDs are a no-op.
func (s *Supervisor) RemoveMailbox(mailboxID string) {
	s.mu.Lock()
	w, ok := s.workers[mailboxID]
	if ok {
		delete(s.workers, mailboxID)
	}
	s.mu.Unlock()

	if ok {
		w.stop()
	}
}

// RequestSync asks the mailbox's worker to run a fetch cycle. Non-forced
// requests are subject to the worker's throttle; forced requests only yield
// to a cycle already in flight.
func (s *Supervisor) RequestSync(mailboxID string, force bool) error {
	s.mu.Lock()
	w, ok := s.workers[mailboxID]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("mailbox %s is not supervised", mailboxID)
	}

	w.enqueue(workerEvent{kind: eventSyncRequest, force: force})
	return nil
}

// healthSweep periodically probes every listening session so silently dead
// connections fail fast and re-enter the reconnect path.
func (s *Supervisor) healthSweep(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			for _, w := range s.workers {
				if w.listening() {
					w.enqueue(workerEvent{kind: eventProbe})
				}
			}
			s.mu.Unlock()
		}
	}
}

// Shutdown stops the health sweep and every worker, waiting for all
// sessions to close.
func (s *Supervisor) Shutdown() {
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	workers := make([]*worker, 0, len(s.workers))
	for id, w := range s.workers {
		workers = append(workers, w)
		delete(s.workers, id)
	}
	s.mu.Unlock()

	for _, w := range workers {
		<-w.done
	}

	log.Printf("sync: supervisor stopped")
}
