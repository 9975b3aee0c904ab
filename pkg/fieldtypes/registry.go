package fieldtypes

import (
	"embed"
	"encoding/json"
	"sync"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
)

//go:embed fieldTypes.json
var fieldTypesFS embed.FS

// FieldTypeDefinition represents a field type configuration
type FieldTypeDefinition struct {
	Label        string                  `json:"label"`
	DefaultLabel string                  `json:"defaultLabel"`
	ValueType    *string                 `json:"valueType"`
	Category     constants.FieldCategory `json:"category"`
}

// Registry holds field type definitions
type Registry struct {
	types map[constants.FieldType]FieldTypeDefinition
	mu    sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// GetRegistry returns the singleton field types registry
func GetRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = &Registry{
			types: make(map[constants.FieldType]FieldTypeDefinition),
		}
		defaultRegistry.loadFromEmbedded()
	})
	return defaultRegistry
}

// loadFromEmbedded loads field types from the embedded JSON file
func (r *Registry) loadFromEmbedded() error {
	data, err := fieldTypesFS.ReadFile("fieldTypes.json")
	if err != nil {
		return err
	}

	var types map[constants.FieldType]FieldTypeDefinition
	if err := json.Unmarshal(data, &types); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = types
	return nil
}

// Get returns a field type definition by type name
func (r *Registry) Get(t constants.FieldType) (FieldTypeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[t]
	return def, ok
}

// Category returns the aggregation category for a field type.
// Unknown types fall back to text, the least surprising behavior.
func (r *Registry) Category(t constants.FieldType) constants.FieldCategory {
	def, ok := r.Get(t)
	if !ok {
		return constants.CategoryText
	}
	return def.Category
}

// IsNumeric reports whether values of the type accumulate as running sums
func IsNumeric(t constants.FieldType) bool {
	return GetRegistry().Category(t) == constants.CategoryNumeric
}

// IsCategorical reports whether the type splits into per-option counters
func IsCategorical(t constants.FieldType) bool {
	switch t {
	case constants.FieldTypeSelect, constants.FieldTypeRadio,
		constants.FieldTypeCheckbox, constants.FieldTypeYesNo:
		return true
	}
	return false
}

// IsTextBased reports whether the type is excluded from aggregate-mode
// element creation entirely (it cannot be summed)
func IsTextBased(t constants.FieldType) bool {
	switch t {
	case constants.FieldTypePhone, constants.FieldTypeGPS,
		constants.FieldTypeEmail, constants.FieldTypeText,
		constants.FieldTypeTextArea:
		return true
	}
	return false
}

// ExcludedFromAggregation reports whether record values of the type are
// skipped when computing aggregate rows. Date and time join the text-based
// set here: they are neither summable nor one-hot splittable.
func ExcludedFromAggregation(t constants.FieldType) bool {
	if IsTextBased(t) {
		return true
	}
	switch t {
	case constants.FieldTypeDate, constants.FieldTypeTime:
		return true
	}
	return false
}

// TrackerValueType maps a field type to the remote value type used when the
// element is created in tracker/event mode. Everything defaults to TEXT.
func TrackerValueType(t constants.FieldType) string {
	switch t {
	case constants.FieldTypeNumber:
		return constants.ValueTypeNumber
	case constants.FieldTypeDate:
		return constants.ValueTypeDate
	default:
		return constants.ValueTypeText
	}
}
