package constants

// DHIS2 metadata domains
const (
	DomainAggregate = "AGGREGATE"
	DomainTracker   = "TRACKER"
)

// DHIS2 value types used by the reconciler
const (
	ValueTypeText    = "TEXT"
	ValueTypeNumber  = "NUMBER"
	ValueTypeInteger = "INTEGER"
	ValueTypeDate    = "DATE"
)

// DHIS2 aggregation types
const (
	AggregationSum  = "SUM"
	AggregationNone = "NONE"
)

// Remote object name limits. DHIS2 rejects shortName > 50 and code > 50;
// program/dataset codes are additionally trimmed to 30 in the original tooling.
const (
	MaxShortNameLength     = 50
	MaxElementCodeLength   = 50
	MaxContainerCodeLength = 30
)

// Event program constants
const (
	ProgramTypeEvent     = "WITHOUT_REGISTRATION"
	EventStatusCompleted = "COMPLETED"
)

// DefaultOrgUnitLevel is used when a form does not pin an org-unit level.
// Level 5 is the facility level in the deployments this was built for.
const DefaultOrgUnitLevel = 5

// Sheets store actions
const (
	ActionSubmit          = "submit"
	ActionGetData         = "getData"
	ActionSaveForm        = "saveForm"
	ActionLoadForms       = "loadForms"
	ActionDeleteForm      = "deleteForm"
	ActionSaveCascadeData = "saveCascadeData"
	ActionGetCascadeData  = "getCascadeData"
)
