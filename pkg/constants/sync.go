package constants

import "time"

// SyncMode selects which remote reporting model a form targets
type SyncMode string

const (
	SyncModeAggregate SyncMode = "aggregate"
	SyncModeTracker   SyncMode = "tracker"
)

// Outbox entry statuses (offline submission queue)
const (
	OutboxStatusPending   = "pending"
	OutboxStatusProcessed = "processed"
	OutboxStatusFailed    = "failed"
)

// Remote write throttling. The remote rejects bursts, and sequential
// search-before-create only stays idempotent if calls do not race each other.
const (
	MetadataCreateDelay = 200 * time.Millisecond
	DataWriteDelay      = 300 * time.Millisecond
)

// Group key conventions shared by the aggregation engine and the reconciler
const (
	GroupKeySeparator   = "|||"
	GroupValueSeparator = " | "
	GroupValueUnknown   = "Unknown"
	GroupValueAll       = "All"
	GroupColumnPrefix   = "_grp_"
)

// System record keys
const (
	KeyRecordID  = "_id"
	KeyTimestamp = "_timestamp"
	KeySynced    = "_synced"
	KeySyncedAt  = "_syncedAt"
	KeySyncError = "_syncError"
	KeyOffline   = "_offline"
	KeyGroup     = "_group"
	KeyPeriod    = "_period"
	KeyCount     = "_count"
)

// MaxRetryAttempts bounds outbox redelivery before an entry is parked as failed
const MaxRetryAttempts = 5
