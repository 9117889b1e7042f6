package sync

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/relaydesk/internal/filter"
	"github.com/relaydesk/relaydesk/internal/models"
	"github.com/relaydesk/relaydesk/internal/testutil"
)

func TestSupervisorIngestsFromLiveServer(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	defer server.Close()

	server.AddMessage(t, models.FolderInbox,
		"<m1@acme.com>", "Order #55",
		"jane@acme.com", "support@relaydesk.test",
		"Where is my order?", time.Now())

	encryptor := testutil.GetTestEncryptor(t)
	password, err := encryptor.Encrypt(server.Password())
	require.NoError(t, err)

	host, portStr, err := net.SplitHostPort(server.Address)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	mailbox := &models.Mailbox{
		ID:                    "mbx-1",
		BusinessID:            "biz-1",
		EmailAddress:          "support@relaydesk.test",
		IMAPHost:              host,
		IMAPPort:              port,
		IMAPUsername:          server.Username(),
		EncryptedIMAPPassword: password,
		UseSSL:                false,
	}

	store := newFakeSyncStore()
	store.mailboxes = []*models.Mailbox{mailbox}
	resolver := &fakeResolver{}
	notifier := &fakeNotifier{}
	pipeline := NewPipeline(store, resolver, fakeSaver{}, filter.NewHeuristic(), notifier)

	supervisor := NewSupervisor(store, pipeline, encryptor, Options{
		PollFallback:   time.Minute,
		HealthInterval: time.Hour,
	})
	require.NoError(t, supervisor.Start(context.Background()))
	defer supervisor.Shutdown()

	// The worker's connect-time forced sync picks the message up. The
	// backend's sample message from a role address is filtered out.
	require.Eventually(t, func() bool {
		return len(store.createdEmails()) == 1
	}, 10*time.Second, 100*time.Millisecond)

	created := store.createdEmails()
	assert.Equal(t, "jane@acme.com", created[0].FromAddress)
	assert.Equal(t, "Order #55", created[0].Subject)
	assert.Equal(t, models.DirectionInbound, created[0].Direction)
	assert.Equal(t, []string{EventEmailReceived}, notifier.seen())

	// A manual resync is a no-op thanks to sequence dedup.
	require.NoError(t, supervisor.RequestSync("mbx-1", true))
	time.Sleep(500 * time.Millisecond)
	assert.Len(t, store.createdEmails(), 1)
}

func TestSupervisorSkipsMailboxWithoutCredentials(t *testing.T) {
	store := newFakeSyncStore()
	store.mailboxes = []*models.Mailbox{{
		ID:           "mbx-bare",
		BusinessID:   "biz-1",
		EmailAddress: "bare@relaydesk.test",
	}}
	resolver := &fakeResolver{}
	pipeline := NewPipeline(store, resolver, fakeSaver{}, filter.NewHeuristic(), &fakeNotifier{})

	supervisor := NewSupervisor(store, pipeline, testutil.GetTestEncryptor(t), Options{})
	require.NoError(t, supervisor.Start(context.Background()))
	defer supervisor.Shutdown()

	err := supervisor.RequestSync("mbx-bare", true)
	assert.Error(t, err)
}

func TestSupervisorRequestSyncUnknownMailbox(t *testing.T) {
	store := newFakeSyncStore()
	pipeline := NewPipeline(store, &fakeResolver{}, fakeSaver{}, filter.NewHeuristic(), &fakeNotifier{})

	supervisor := NewSupervisor(store, pipeline, testutil.GetTestEncryptor(t), Options{})
	require.NoError(t, supervisor.Start(context.Background()))
	defer supervisor.Shutdown()

	assert.Error(t, supervisor.RequestSync("mbx-nope", true))
}
