package sync

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	idle "github.com/emersion/go-imap-idle"
	"github.com/emersion/go-imap/client"

	"github.com/relaydesk/relaydesk/internal/crypto"
	"github.com/relaydesk/relaydesk/internal/imap"
	"github.com/relaydesk/relaydesk/internal/models"
)

// Session states of a mailbox worker.
const (
	stateDisconnected int32 = iota
	stateConnecting
	stateListening
	stateReconnecting
)

type workerEventKind int

const (
	eventSyncRequest workerEventKind = iota
	eventProbe
)

type workerEvent struct {
	kind  workerEventKind
	force bool
}

// worker owns one mailbox's live IMAP session and all of its mutable sync
// state: the connection handle, the last-sync time, and the in-progress
// flag. All external triggers arrive as events on its channel; nothing is
// shared with other workers.
type worker struct {
	mailbox   *models.Mailbox
	store     Store
	pipeline  *Pipeline
	encryptor *crypto.Encryptor

	fetchWindow    int
	reconnectDelay time.Duration
	debounce       time.Duration
	pollFallback   time.Duration

	sched  *scheduler
	events chan workerEvent
	state  atomic.Int32

	cancel context.CancelFunc
	done   chan struct{}
}

func newWorker(mailbox *models.Mailbox, store Store, pipeline *Pipeline, encryptor *crypto.Encryptor, opts Options) *worker {
	w := &worker{
		mailbox:        mailbox,
		store:          store,
		pipeline:       pipeline,
		encryptor:      encryptor,
		fetchWindow:    opts.FetchWindow,
		reconnectDelay: opts.ReconnectDelay,
		debounce:       opts.Debounce,
		pollFallback:   opts.PollFallback,
		events:         make(chan workerEvent, 8),
		done:           make(chan struct{}),
	}
	w.sched = newScheduler(mailbox.ID, opts.MinSyncInterval, w.fetchCycle)
	return w
}

// start launches the worker's supervision loop.
func (w *worker) start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

// stop tears the worker down and waits for its session to close.
func (w *worker) stop() {
	w.cancel()
	<-w.done
}

// enqueue delivers an event to the worker without blocking. Events arriving
// faster than the worker drains them are dropped; sync triggers are
// level-triggered, so a drop loses nothing.
func (w *worker) enqueue(ev workerEvent) {
	select {
	case w.events <- ev:
	default:
	}
}

// listening reports whether the session is currently in the listening state.
func (w *worker) listening() bool {
	return w.state.Load() == stateListening
}

// run drives connect → listen → reconnect forever. There is no retry cap:
// a mailbox that cannot connect keeps retrying at a fixed delay until the
// process shuts down or the mailbox is removed.
func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.state.Store(stateDisconnected)

	for {
		if ctx.Err() != nil {
			return
		}

		if err := w.connectAndListen(ctx); err != nil {
			log.Printf("sync: mailbox %s: session ended: %v", w.mailbox.ID, err)
		}

		if ctx.Err() != nil {
			return
		}

		w.state.Store(stateReconnecting)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.reconnectDelay):
		}
	}
}

// connectAndListen opens the mailbox's session, requests an immediate
// catch-up sync, and listens for new-message notifications until the
// connection fails or the context is canceled.
func (w *worker) connectAndListen(ctx context.Context) error {
	w.state.Store(stateConnecting)

	c, err := w.connect()
	if err != nil {
		return err
	}
	defer func() {
		// Teardown ignores close errors.
		_ = c.Logout()
	}()

	if _, err := c.Select(models.FolderInbox, false); err != nil {
		return fmt.Errorf("failed to select inbox: %w", err)
	}

	w.state.Store(stateListening)
	w.requestSyncAsync(ctx, true)

	updates := make(chan client.Update, 10)
	c.Updates = updates

	idleClient := idle.NewClient(c)
	stop := make(chan struct{})
	idleDone := make(chan error, 1)
	startIdle := func(stopCh chan struct{}) {
		go func() {
			idleDone <- idleClient.IdleWithFallback(stopCh, w.pollFallback)
		}()
	}
	startIdle(stop)

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-idleDone
			return nil

		case err := <-idleDone:
			if err != nil {
				return fmt.Errorf("idle loop ended: %w", err)
			}
			return fmt.Errorf("idle loop ended unexpectedly")

		case update := <-updates:
			if isNewMailUpdate(update) {
				// Brief debounce so the provider settles before we fetch.
				time.AfterFunc(w.debounce, func() {
					w.requestSyncAsync(ctx, true)
				})
			}

		case ev := <-w.events:
			switch ev.kind {
			case eventSyncRequest:
				w.requestSyncAsync(ctx, ev.force)

			case eventProbe:
				// Pause IDLE so the probe has the connection to itself.
				close(stop)
				if err := <-idleDone; err != nil {
					return fmt.Errorf("idle loop ended: %w", err)
				}
				if err := c.Noop(); err != nil {
					return fmt.Errorf("health probe failed: %w", err)
				}
				stop = make(chan struct{})
				startIdle(stop)
				w.requestSyncAsync(ctx, false)
			}
		}
	}
}

// connect dials and authenticates the mailbox's inbound session.
func (w *worker) connect() (*client.Client, error) {
	password, err := w.encryptor.Decrypt(w.mailbox.EncryptedIMAPPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt inbound password: %w", err)
	}

	c, err := imap.Connect(w.mailbox.IMAPAddr(), w.mailbox.UseSSL)
	if err != nil {
		return nil, err
	}

	if err := imap.Login(c, w.mailbox.IMAPUsername, password); err != nil {
		_ = c.Logout()
		return nil, err
	}

	return c, nil
}

// requestSyncAsync runs a fetch cycle off the listening goroutine so the
// session stays responsive. The scheduler drops the request if a cycle is
// already running or the throttle window has not elapsed.
func (w *worker) requestSyncAsync(ctx context.Context, force bool) {
	go w.sched.RequestSync(ctx, force)
}

// fetchCycle is one bounded ingestion pass. It uses its own short-lived
// connection so it never competes with the listening session's IDLE.
func (w *worker) fetchCycle(ctx context.Context) error {
	c, err := w.connect()
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Logout()
	}()

	mbox, err := c.Select(models.FolderInbox, true)
	if err != nil {
		return fmt.Errorf("failed to select inbox: %w", err)
	}

	messages, err := imap.FetchRecent(c, mbox.Messages, w.fetchWindow)
	if err != nil {
		return err
	}

	w.pipeline.IngestBatch(ctx, w.mailbox, messages)
	return nil
}

// isNewMailUpdate reports whether an IDLE update signals new messages in
// the watched folder.
func isNewMailUpdate(update client.Update) bool {
	mboxUpdate, ok := update.(*client.MailboxUpdate)
	if !ok || mboxUpdate.Mailbox == nil {
		return false
	}
	return mboxUpdate.Mailbox.Name == models.FolderInbox && mboxUpdate.Mailbox.Messages > 0
}
