package models

import (
	"fmt"
	"time"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
)

// Record is a submitted data row: field name -> value, plus system keys.
// Mirrors the dynamic row shape the spreadsheet store and the form runtime use.
type Record map[string]interface{}

// ID returns the record's creation-time identifier as a string
func (r Record) ID() string {
	switch v := r[constants.KeyRecordID].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// Timestamp parses the record's creation time. Zero time when absent or invalid.
func (r Record) Timestamp() time.Time {
	s, _ := r[constants.KeyTimestamp].(string)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Synced reports whether the record has been delivered to the remote system
func (r Record) Synced() bool {
	b, _ := r[constants.KeySynced].(bool)
	return b
}

// SyncError returns the stored failure reason, if any
func (r Record) SyncError() string {
	s, _ := r[constants.KeySyncError].(string)
	return s
}

// StringValue returns the record value for a field name as a trimmed-down
// string. Empty string for nil/absent values.
func (r Record) StringValue(name string) string {
	v, ok := r[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// MarkSynced flips the record to its terminal synced state
func (r Record) MarkSynced(at time.Time) {
	r[constants.KeySynced] = true
	r[constants.KeySyncedAt] = at.UTC().Format(time.RFC3339)
	delete(r, constants.KeySyncError)
}

// MarkFailed records a retryable failure reason
func (r Record) MarkFailed(reason string) {
	r[constants.KeySynced] = false
	r[constants.KeySyncError] = reason
}

// AggregateRow is an ephemeral grouped summary: _group/_period/_count plus one
// key per numeric field and one per field_option counter.
type AggregateRow map[string]interface{}

// Group returns the joined grouping-column value for the row
func (a AggregateRow) Group() string {
	s, _ := a[constants.KeyGroup].(string)
	return s
}

// Period returns the resolved period for the row
func (a AggregateRow) Period() string {
	s, _ := a[constants.KeyPeriod].(string)
	return s
}

// Count returns the number of source records in the group
func (a AggregateRow) Count() int {
	switch v := a[constants.KeyCount].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// RecordFilter narrows a record set for views and aggregation
type RecordFilter struct {
	Start  *time.Time        `json:"start,omitempty"`
	End    *time.Time        `json:"end,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Matches applies the date-range and field-equality filters to one record
func (f *RecordFilter) Matches(r Record) bool {
	if f == nil {
		return true
	}
	if f.Start != nil || f.End != nil {
		ts := r.Timestamp()
		// Records without a timestamp are kept, matching the original viewer
		if !ts.IsZero() {
			if f.Start != nil && ts.Before(*f.Start) {
				return false
			}
			if f.End != nil && ts.After(*f.End) {
				return false
			}
		}
	}
	for name, want := range f.Fields {
		if want == "" {
			continue
		}
		if r.StringValue(name) != want {
			return false
		}
	}
	return true
}
