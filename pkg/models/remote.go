package models

import "github.com/mohamedsillahkanu/icf-collect/pkg/constants"

// RemoteConfig holds the DHIS2 connection and column configuration for a form
type RemoteConfig struct {
	URL           string             `json:"url"`
	Username      string             `json:"username"`
	Password      string             `json:"password"`
	SyncMode      constants.SyncMode `json:"sync_mode"`
	OrgUnitLevel  int                `json:"org_unit_level"`
	PeriodType    string             `json:"period_type"`
	PeriodColumn  string             `json:"period_column,omitempty"`
	OrgUnitColumn string             `json:"org_unit_column,omitempty"`
	ProgramID     string             `json:"program_id,omitempty"`

	// AllowOrgUnitFallback opts in to attributing an event to the first
	// known org unit when no match is found. Unmatched records are skipped
	// otherwise.
	AllowOrgUnitFallback bool `json:"allow_org_unit_fallback,omitempty"`
}

// Configured reports whether the remote endpoint is usable at all
func (c *RemoteConfig) Configured() bool {
	return c != nil && c.URL != "" && c.Username != "" && c.Password != ""
}

// RemoteMapping caches the remote identifiers that mirror a form schema.
// Never assumed stable across remote resets; reconciliation rediscovers it.
type RemoteMapping struct {
	DatasetID      string            `json:"dataset_id,omitempty"`
	ProgramID      string            `json:"program_id,omitempty"`
	ProgramStageID string            `json:"program_stage_id,omitempty"`
	DataElements   map[string]string `json:"data_elements,omitempty"`
}

// ElementID looks up the remote data-element id for a column key
func (m *RemoteMapping) ElementID(columnKey string) (string, bool) {
	if m == nil || m.DataElements == nil {
		return "", false
	}
	id, ok := m.DataElements[columnKey]
	return id, ok
}

// SetElementID records a resolved element id, allocating the map lazily
func (m *RemoteMapping) SetElementID(columnKey, id string) {
	if m.DataElements == nil {
		m.DataElements = make(map[string]string)
	}
	m.DataElements[columnKey] = id
}

// OrgUnit is a remote organisation-unit reference
type OrgUnit struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Code        string `json:"code,omitempty"`
}

// SheetsConfig points at the spreadsheet-backed store relay
type SheetsConfig struct {
	ScriptURL string `json:"script_url"`
	SheetID   string `json:"sheet_id,omitempty"`
}
