package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ppewatch/internal/datastore"
)

func TestDispatchOnce_FansOutToWorkerAndAdmins(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	sender := newFakeSender()
	records := seedViolations(t, store, "W-1", "")

	d := NewDispatcher(store, sender, WithAdmins("admin-1", "admin-2"))
	result, err := d.DispatchOnce(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Records)
	// W-1 + 2 admins for the first record, 2 admins for the unbound one
	require.Len(t, result.Outcomes, 5)
	assert.Equal(t, 5, result.Succeeded())

	msgs := sender.messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "W-1", msgs[0].recipient)
	assert.Contains(t, msgs[0].text, "Hard hat not detected")
	assert.Equal(t, "admin-1", msgs[1].recipient)
	assert.Contains(t, msgs[1].text, "Missing: no_helmet")
	assert.Contains(t, msgs[3].text, "Worker: Unidentified worker")

	rows, err := store.OutcomesForBatch(t.Context(), result.BatchID)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	require.NotNil(t, rows[0].ViolationID)
	assert.Equal(t, records[0].ID, *rows[0].ViolationID)

	history, err := store.RecentDeliveryHistory(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, HistoryKindViolations, history[0].Kind)
	assert.Equal(t, 5, history[0].Sent)
}

func TestDispatchOnce_FailureNeverAbortsBatch(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	sender := newFakeSender()
	sender.failFor["W-3"] = true
	sender.panicFor["W-5"] = true
	seedViolations(t, store, "W-1", "W-2", "W-3", "W-4", "W-5")

	d := NewDispatcher(store, sender, WithAdmins("admin"))
	result, err := d.DispatchOnce(t.Context())
	require.NoError(t, err)

	var worker []Outcome
	for _, o := range result.Outcomes {
		if o.Role == RoleWorker {
			worker = append(worker, o)
		}
	}
	require.Len(t, worker, 5)
	assert.False(t, worker[2].Success)
	assert.False(t, worker[4].Success)
	assert.ErrorContains(t, worker[4].Err, "sender panic")
	assert.Equal(t, 2, result.Failed())

	pending, err := store.CountUnnotified(t.Context())
	require.NoError(t, err)
	assert.Zero(t, pending, "every fetched record stays notified")

	again, err := d.DispatchOnce(t.Context())
	require.NoError(t, err)
	assert.Empty(t, again.Outcomes, "failed sends are not retried")
}

func TestDispatchOnce_EmptyStore(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	d := NewDispatcher(store, newFakeSender(), WithAdmins("admin"))

	result, err := d.DispatchOnce(t.Context())
	require.NoError(t, err)
	assert.Zero(t, result.Records)
	assert.Equal(t, StateIdle, d.State())

	history, err := store.RecentDeliveryHistory(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDispatchOnce_WithoutAdminsLeavesRecordsPending(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	sender := newFakeSender()
	seedViolations(t, store, "", "")

	d := NewDispatcher(store, sender)
	result, err := d.DispatchOnce(t.Context())
	require.ErrorIs(t, err, ErrNoAdminRecipients)
	assert.Nil(t, result)
	assert.Empty(t, sender.messages())

	pending, err := store.CountUnnotified(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	require.ErrorIs(t, d.Run(t.Context()), ErrNoAdminRecipients)
}

func TestDispatchOnce_BatchLimit(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	seedViolations(t, store, "a", "b", "c")

	d := NewDispatcher(store, newFakeSender(), WithAdmins("admin"), WithBatchLimit(2))
	first, err := d.DispatchOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Records)

	second, err := d.DispatchOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Records)
}

// blockingSender blocks each send until released.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	count   int
}

func (b *blockingSender) Name() string { return "blocking" }

func (b *blockingSender) Send(ctx context.Context, _, _ string) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
	return ctx.Err()
}

func TestRun_ShutdownCompletesInFlightBatch(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	seedViolations(t, store, "W-1", "W-2", "W-3")

	sender := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(store, sender, WithAdmins("admin"), WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	<-sender.started
	assert.Equal(t, StateDispatching, d.State())
	cancel()
	close(sender.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	// three workers plus the admin copy of each record
	sender.mu.Lock()
	assert.Equal(t, 6, sender.count)
	sender.mu.Unlock()
	assert.Equal(t, StateIdle, d.State())

	history, err := store.RecentDeliveryHistory(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 6, history[0].Succeeded, "sends use a context detached from shutdown")
}

func TestDirectory_ResolvesNamesForMessages(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	require.NoError(t, store.UpsertRecipient(t.Context(), &datastore.Recipient{ChatID: "W-9", Name: "Deniz", Active: true}))
	seedViolations(t, store, "W-9")

	sender := newFakeSender()
	dir := NewDirectory(store, time.Minute, nil)
	d := NewDispatcher(store, sender, WithAdmins("admin"), WithDirectory(dir))

	_, err := d.DispatchOnce(t.Context())
	require.NoError(t, err)

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].text, "Deniz, missing protective equipment was detected at Gate-1.")
	assert.Empty(t, dir.Name(t.Context(), "unknown"))
}
