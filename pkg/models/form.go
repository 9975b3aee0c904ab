package models

import "time"

// FormEntry is a persisted form: schema, settings, remote config and the
// remote-mapping cache, keyed by form identifier.
type FormEntry struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Schema    FormSchema    `json:"schema"`
	Remote    *RemoteConfig `json:"remote,omitempty"`
	Mapping   RemoteMapping `json:"mapping"`
	UpdatedAt time.Time     `json:"updatedAt"`
	CreatedAt time.Time     `json:"createdAt"`
}

// NewerThan compares two catalog entries for last-write-wins merging
func (f *FormEntry) NewerThan(other *FormEntry) bool {
	if other == nil {
		return true
	}
	return f.UpdatedAt.After(other.UpdatedAt)
}

// SyncLogEntry is one line of a flow's running outcome log
type SyncLogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"` // info, success, warning, error
	Message string    `json:"message"`
}

// SyncReport summarizes one sync flow run
type SyncReport struct {
	Mode      string         `json:"mode"`
	Success   int            `json:"success"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   time.Time      `json:"endedAt"`
	Log       []SyncLogEntry `json:"log"`
}
