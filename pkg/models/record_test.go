package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
)

func TestRecordSystemAccessors(t *testing.T) {
	r := Record{
		constants.KeyRecordID:  "r1",
		constants.KeyTimestamp: "2026-03-01T10:30:00Z",
		constants.KeySynced:    true,
	}

	assert.Equal(t, "r1", r.ID())
	assert.Equal(t, 2026, r.Timestamp().Year())
	assert.True(t, r.Synced())

	// Rows loaded from the store may carry a numeric id
	assert.Equal(t, "1709290000", Record{constants.KeyRecordID: float64(1709290000)}.ID())
	assert.Empty(t, Record{}.ID())
	assert.True(t, Record{constants.KeyTimestamp: "yesterday"}.Timestamp().IsZero())
}

func TestMarkSyncedClearsFailure(t *testing.T) {
	r := Record{constants.KeyRecordID: "r1"}
	r.MarkFailed("value is not numeric")
	assert.False(t, r.Synced())
	assert.Equal(t, "value is not numeric", r.SyncError())

	r.MarkSynced(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	assert.True(t, r.Synced())
	assert.Empty(t, r.SyncError())
	assert.Equal(t, "2026-03-01T12:00:00Z", r[constants.KeySyncedAt])
}

func TestRecordFilterMatches(t *testing.T) {
	march := Record{
		constants.KeyTimestamp: "2026-03-15T00:00:00Z",
		"district":             "Kailahun",
	}
	undated := Record{"district": "Bo"}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, (*RecordFilter)(nil).Matches(march))
	assert.True(t, (&RecordFilter{Start: &start, End: &end}).Matches(march))

	late := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, (&RecordFilter{Start: &late}).Matches(march))

	// Undated records pass date filters
	assert.True(t, (&RecordFilter{Start: &late}).Matches(undated))

	assert.True(t, (&RecordFilter{Fields: map[string]string{"district": "Kailahun"}}).Matches(march))
	assert.False(t, (&RecordFilter{Fields: map[string]string{"district": "Bo"}}).Matches(march))
	assert.True(t, (&RecordFilter{Fields: map[string]string{"district": ""}}).Matches(march))
}
