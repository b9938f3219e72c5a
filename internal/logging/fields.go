package logging

// Standardized attribute keys shared by pipeline log records.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldRunID     = "run_id"
	FieldFile      = "file"
	FieldFromState = "from"
	FieldToState   = "to"
	FieldErrorKind = "error_kind"
)
