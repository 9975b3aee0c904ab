package dhis2

// MetaRef is a minimal remote metadata object reference
type MetaRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StageRef identifies a program stage
type StageRef struct {
	ID string `json:"id"`
}

// ProgramRef is a program with its stage list
type ProgramRef struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	ProgramStages []StageRef `json:"programStages"`
}

// SystemInfo is the system/info probe payload
type SystemInfo struct {
	SystemName string `json:"systemName"`
	Version    string `json:"version"`
}

// DataValue is one measured value in a dataValueSets or events payload.
// Period and OrgUnit are set in aggregate batches and omitted inside events.
type DataValue struct {
	DataElement string `json:"dataElement"`
	Value       string `json:"value"`
	Period      string `json:"period,omitempty"`
	OrgUnit     string `json:"orgUnit,omitempty"`
}

// Event is an event-program data row
type Event struct {
	Program      string      `json:"program"`
	ProgramStage string      `json:"programStage,omitempty"`
	OrgUnit      string      `json:"orgUnit"`
	EventDate    string      `json:"eventDate"`
	Status       string      `json:"status"`
	DataValues   []DataValue `json:"dataValues"`
}

// ImportSummary mirrors the remote's per-item import report
type ImportSummary struct {
	Status      string `json:"status"`
	Description string `json:"description"`
}

// ImportResponse is the nested response object of a metadata create or an
// event/data import
type ImportResponse struct {
	UID             string          `json:"uid"`
	Imported        int             `json:"imported"`
	Updated         int             `json:"updated"`
	Ignored         int             `json:"ignored"`
	ImportSummaries []ImportSummary `json:"importSummaries"`
}

// envelope covers every collection reply the client asks for
type envelope struct {
	DataElements  []MetaRef    `json:"dataElements"`
	DataSets      []MetaRef    `json:"dataSets"`
	Programs      []ProgramRef `json:"programs"`
	ProgramStages []MetaRef    `json:"programStages"`
}

// importEnvelope covers create/import replies
type importEnvelope struct {
	Status   string          `json:"status"`
	UID      string          `json:"uid"`
	Message  string          `json:"message"`
	Response *ImportResponse `json:"response"`
}

// ImportedUID extracts the created object id from either envelope layout
func (e *importEnvelope) ImportedUID() string {
	if e.Response != nil && e.Response.UID != "" {
		return e.Response.UID
	}
	return e.UID
}
