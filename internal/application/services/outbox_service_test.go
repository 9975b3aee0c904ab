package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/persistence"
	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/sheets"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

type fakeOutboxStore struct {
	fakeOutbox
	pending       []persistence.OutboxEntry
	processed     []string
	retried       []string
	retriedCounts []int
}

func (f *fakeOutboxStore) Pending(ctx context.Context, limit int) ([]persistence.OutboxEntry, error) {
	n := len(f.pending)
	if n > limit {
		n = limit
	}
	out := make([]persistence.OutboxEntry, n)
	copy(out, f.pending[:n])
	return out, nil
}

func (f *fakeOutboxStore) PendingCount(ctx context.Context) (int, error) {
	return len(f.pending), nil
}

func (f *fakeOutboxStore) MarkProcessed(ctx context.Context, id string) error {
	f.processed = append(f.processed, id)
	f.drop(id)
	return nil
}

func (f *fakeOutboxStore) MarkRetry(ctx context.Context, id string, retryCount int, lastError string) error {
	f.retried = append(f.retried, id)
	f.retriedCounts = append(f.retriedCounts, retryCount)
	f.drop(id)
	return nil
}

func (f *fakeOutboxStore) drop(id string) {
	for i, e := range f.pending {
		if e.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

func queuedEntry(t *testing.T, id, recordID string) persistence.OutboxEntry {
	t.Helper()
	req := sheets.SubmitRequest{
		FormTitle: "Nutrition Survey",
		Data:      models.Record{"_id": recordID, "_offline": true, "name": "A"},
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return persistence.OutboxEntry{ID: id, FormID: "form1", Payload: string(payload)}
}

func TestOutboxFlush_DeliversInOrder(t *testing.T) {
	store := &fakeSheets{configured: true}
	queue := &fakeOutboxStore{}
	queue.pending = []persistence.OutboxEntry{
		queuedEntry(t, "ob1", "r1"),
		queuedEntry(t, "ob2", "r2"),
	}
	records := newFakeRecords()
	records.byForm["form1"] = []models.Record{
		{"_id": "r1", "_offline": true},
		{"_id": "r2", "_offline": true},
	}

	svc := NewOutboxService(queue, store, records, nil)
	delivered, err := svc.Flush(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, delivered)
	assert.Equal(t, []string{"ob1", "ob2"}, queue.processed)
	require.Len(t, store.submitted, 2)
	assert.Equal(t, "r1", store.submitted[0].Data.ID())

	// Delivery clears the offline marker on the stored record
	_, stillOffline := records.byForm["form1"][0][constants.KeyOffline]
	assert.False(t, stillOffline)
}

func TestOutboxFlush_StopsAtFirstFailure(t *testing.T) {
	store := &fakeSheets{configured: true, failSubmit: true}
	queue := &fakeOutboxStore{}
	queue.pending = []persistence.OutboxEntry{
		queuedEntry(t, "ob1", "r1"),
		queuedEntry(t, "ob2", "r2"),
	}

	svc := NewOutboxService(queue, store, newFakeRecords(), nil)
	delivered, err := svc.Flush(context.Background())
	require.NoError(t, err)

	assert.Zero(t, delivered)
	assert.Equal(t, []string{"ob1"}, queue.retried)
	// a first failure reports attempt 1, not the prior count
	assert.Equal(t, []int{1}, queue.retriedCounts)
	// ob2 stays untouched so order is preserved on the next pass
	require.Len(t, queue.pending, 1)
	assert.Equal(t, "ob2", queue.pending[0].ID)
}

func TestOutboxFlush_ParksUnreadablePayloads(t *testing.T) {
	store := &fakeSheets{configured: true}
	queue := &fakeOutboxStore{}
	queue.pending = []persistence.OutboxEntry{
		{ID: "ob1", FormID: "form1", Payload: "{not json"},
		queuedEntry(t, "ob2", "r2"),
	}
	records := newFakeRecords()
	records.byForm["form1"] = []models.Record{{"_id": "r2", "_offline": true}}

	svc := NewOutboxService(queue, store, records, nil)
	delivered, err := svc.Flush(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"ob1"}, queue.retried)
	assert.Equal(t, []int{constants.MaxRetryAttempts}, queue.retriedCounts)
	assert.Equal(t, []string{"ob2"}, queue.processed)
}

func TestOutboxFlush_NoStoreConfigured(t *testing.T) {
	queue := &fakeOutboxStore{}
	queue.pending = []persistence.OutboxEntry{queuedEntry(t, "ob1", "r1")}

	svc := NewOutboxService(queue, &fakeSheets{configured: false}, newFakeRecords(), nil)
	delivered, err := svc.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Len(t, queue.pending, 1)
}
