package models

import "github.com/mohamedsillahkanu/icf-collect/pkg/constants"

// FieldType is defined in pkg/constants
type FieldType = constants.FieldType

// Field represents a single form field definition.
// The form builder owns these; the engine consumes them read-only.
type Field struct {
	ID       string    `json:"id"`
	Type     FieldType `json:"type"`
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Required bool      `json:"required,omitempty"`
	Options  []string  `json:"options,omitempty"`
	Formula  *string   `json:"formula,omitempty"`

	MinValue  *float64 `json:"min_value,omitempty"`
	MaxValue  *float64 `json:"max_value,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	MinDate   *string  `json:"min_date,omitempty"`
	MaxDate   *string  `json:"max_date,omitempty"`
	MaxRating *int     `json:"max_rating,omitempty"`

	CascadeColumns []string `json:"cascade_columns,omitempty"`
	CascadeDataID  *string  `json:"cascade_data_id,omitempty"`
}

// IsSection reports whether the field is a structural section header
// rather than a data-carrying field.
func (f *Field) IsSection() bool {
	return f.Type == constants.FieldTypeSection
}

// OptionValues returns the declared option set for categorical fields.
// yesno fields carry an implicit Yes/No option pair.
func (f *Field) OptionValues() []string {
	if f.Type == constants.FieldTypeYesNo {
		return constants.YesNoOptions
	}
	return f.Options
}

// FormSettings holds per-form configuration owned by the form editor
type FormSettings struct {
	Title            string   `json:"title"`
	OriginalTitle    string   `json:"original_title,omitempty"`
	FormID           string   `json:"form_id,omitempty"`
	AggregateColumn  string   `json:"aggregate_column,omitempty"`
	AggregateColumns []string `json:"aggregate_columns,omitempty"`
	GPSField         string   `json:"gps_field,omitempty"`
}

// GroupingColumns resolves the effective multi-column grouping list,
// honoring the legacy single-column setting.
func (s *FormSettings) GroupingColumns() []string {
	if len(s.AggregateColumns) > 0 {
		return s.AggregateColumns
	}
	if s.AggregateColumn != "" {
		return []string{s.AggregateColumn}
	}
	return nil
}

// FormSchema bundles the fields and settings the engine works against
type FormSchema struct {
	Fields   []Field      `json:"fields"`
	Settings FormSettings `json:"settings"`
}

// DataFields returns fields that carry data (everything except sections),
// minus any excluded names such as the period and org-unit columns.
func (fs *FormSchema) DataFields(exclude ...string) []Field {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		if name != "" {
			skip[name] = true
		}
	}

	var out []Field
	for _, f := range fs.Fields {
		if f.IsSection() || skip[f.Name] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FieldByName finds a field by its schema key
func (fs *FormSchema) FieldByName(name string) *Field {
	for i := range fs.Fields {
		if fs.Fields[i].Name == name {
			return &fs.Fields[i]
		}
	}
	return nil
}
