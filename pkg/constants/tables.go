package constants

// Table names for the local store
const (
	TableForms         = "forms"
	TableRecords       = "records"
	TableOutboxEntries = "outbox_entries"
)

// Common column names
const (
	FieldID       = "id"
	FieldFormID   = "form_id"
	FieldMessage  = "message"
	ResponseError = "error"
)
