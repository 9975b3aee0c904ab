package models

// ColumnKeyFor derives the canonical column key for a field, or for one
// option of a categorical field. The reconciler names remote data elements
// with these keys and the aggregation engine emits row keys with them; both
// sides call this one function so the naming can never drift.
func ColumnKeyFor(field *Field, option string) string {
	if option == "" {
		return field.Name
	}
	return field.Name + "_" + option
}

// ElementLabelFor derives the human label for a field's remote data element,
// or for one option's one-hot indicator element.
func ElementLabelFor(field *Field, option string) string {
	if option == "" {
		return field.Label
	}
	return field.Label + " (" + option + ")"
}
