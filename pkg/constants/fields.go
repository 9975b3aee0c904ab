package constants

// FieldType represents the type of a form field
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeTime        FieldType = "time"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeTextArea    FieldType = "textarea"
	FieldTypeSelect      FieldType = "select"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeYesNo       FieldType = "yesno"
	FieldTypeGPS         FieldType = "gps"
	FieldTypeQRCode      FieldType = "qrcode"
	FieldTypeCascade     FieldType = "cascade"
	FieldTypeRating      FieldType = "rating"
	FieldTypeCalculation FieldType = "calculation"
	FieldTypePeriod      FieldType = "period"
	FieldTypeSection     FieldType = "section"
)

// FieldCategory groups field types by aggregation behavior
type FieldCategory string

const (
	CategoryText        FieldCategory = "text"
	CategoryNumeric     FieldCategory = "numeric"
	CategoryDate        FieldCategory = "date"
	CategoryTime        FieldCategory = "time"
	CategoryCategorical FieldCategory = "categorical"
	CategoryStructure   FieldCategory = "structure"
	CategoryPeriod      FieldCategory = "dhis2"
)

// YesNoOptions is the implicit option set for yesno fields
var YesNoOptions = []string{"Yes", "No"}
