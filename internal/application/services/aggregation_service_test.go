package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

func surveySchema() *models.FormSchema {
	return &models.FormSchema{
		Fields: []models.Field{
			{Name: "facility", Label: "Facility", Type: constants.FieldTypeText},
			{Name: "sex", Label: "Sex", Type: constants.FieldTypeSelect, Options: []string{"Male", "Female"}},
			{Name: "cases", Label: "Cases", Type: constants.FieldTypeNumber},
			{Name: "notes", Label: "Notes", Type: constants.FieldTypeTextArea},
		},
		Settings: models.FormSettings{Title: "Malaria Survey"},
	}
}

func TestAggregationService_GroupAndCount(t *testing.T) {
	svc := NewAggregationService()
	records := []models.Record{
		{"facility": "Kailahun CHC", "sex": "Male", "cases": 3, "_timestamp": "2026-03-05T10:00:00Z"},
		{"facility": "Kailahun CHC", "sex": "Female", "cases": 2, "_timestamp": "2026-03-09T10:00:00Z"},
		{"facility": "Kailahun CHC", "sex": "Male", "cases": 1, "_timestamp": "2026-03-20T10:00:00Z"},
		{"facility": "Bo Clinic", "sex": "Female", "cases": 5, "_timestamp": "2026-03-21T10:00:00Z"},
	}

	rows := svc.Aggregate(surveySchema(), records, []string{"facility"}, "")
	assert.Len(t, rows, 2)

	kailahun := rows[0]
	assert.Equal(t, "Kailahun CHC", kailahun.Group())
	assert.Equal(t, "202603", kailahun.Period())
	assert.Equal(t, 3, kailahun.Count())
	assert.Equal(t, 2, kailahun["sex_Male"])
	assert.Equal(t, 1, kailahun["sex_Female"])
	assert.Equal(t, 4.0, kailahun["cases"])

	bo := rows[1]
	assert.Equal(t, "Bo Clinic", bo.Group())
	assert.Equal(t, 1, bo.Count())
	assert.Equal(t, 0, bo["sex_Male"])
	assert.Equal(t, 1, bo["sex_Female"])
	assert.Equal(t, 5.0, bo["cases"])
}

func TestAggregationService_NoGroupingFallsBackToAll(t *testing.T) {
	svc := NewAggregationService()
	records := []models.Record{
		{"sex": "Male", "cases": 1, "_timestamp": "2026-01-02T08:00:00Z"},
		{"sex": "Male", "cases": 2, "_timestamp": "2026-01-15T08:00:00Z"},
	}

	rows := svc.Aggregate(surveySchema(), records, nil, "")
	assert.Len(t, rows, 1)
	assert.Equal(t, constants.GroupValueAll, rows[0].Group())
	assert.Equal(t, "202601", rows[0].Period())
	assert.Equal(t, 2, rows[0].Count())
}

func TestAggregationService_MissingGroupValueIsUnknown(t *testing.T) {
	svc := NewAggregationService()
	records := []models.Record{
		{"cases": 7, "_timestamp": "2026-02-01T08:00:00Z"},
	}

	rows := svc.Aggregate(surveySchema(), records, []string{"facility"}, "")
	assert.Len(t, rows, 1)
	assert.Equal(t, constants.GroupValueUnknown, rows[0].Group())
}

func TestAggregationService_PeriodColumnWins(t *testing.T) {
	svc := NewAggregationService()
	records := []models.Record{
		{"facility": "Bo Clinic", "period": "202512", "cases": 1, "_timestamp": "2026-02-01T08:00:00Z"},
	}

	schema := surveySchema()
	schema.Fields = append(schema.Fields, models.Field{Name: "period", Label: "Period", Type: constants.FieldTypePeriod})

	rows := svc.Aggregate(schema, records, []string{"facility"}, "period")
	assert.Len(t, rows, 1)
	assert.Equal(t, "202512", rows[0].Period())
	// The period column is a key, never a measure
	_, present := rows[0]["period"]
	assert.False(t, present)
}

func TestAggregationService_CategoricalZeroInit(t *testing.T) {
	svc := NewAggregationService()
	// No Female answers at all; the counter must still exist at zero so the
	// remote element receives an explicit 0 instead of being skipped.
	records := []models.Record{
		{"facility": "Bo Clinic", "sex": "Male", "_timestamp": "2026-04-01T08:00:00Z"},
	}

	rows := svc.Aggregate(surveySchema(), records, []string{"facility"}, "")
	assert.Equal(t, 1, rows[0]["sex_Male"])
	assert.Equal(t, 0, rows[0]["sex_Female"])
}

func TestAggregationService_TextFieldsNeverAggregate(t *testing.T) {
	svc := NewAggregationService()
	records := []models.Record{
		{"facility": "Bo Clinic", "notes": "long free text", "_timestamp": "2026-04-01T08:00:00Z"},
	}

	rows := svc.Aggregate(surveySchema(), records, []string{"facility"}, "")
	_, present := rows[0]["notes"]
	assert.False(t, present)
}

func TestAggregationService_EmptyInput(t *testing.T) {
	svc := NewAggregationService()
	assert.Nil(t, svc.Aggregate(surveySchema(), nil, []string{"facility"}, ""))
}

func TestAggregationService_NumericColumns(t *testing.T) {
	svc := NewAggregationService()
	cols := svc.NumericColumns(surveySchema(), map[string]bool{"facility": true})
	assert.Equal(t, []string{"sex_Male", "sex_Female", "cases"}, cols)
}

func TestAggregationService_InputOrderDoesNotChangeRows(t *testing.T) {
	records := []models.Record{
		{"facility": "Kailahun CHC", "sex": "Male", "cases": 3, "_timestamp": "2026-03-05T10:00:00Z"},
		{"facility": "Kailahun CHC", "sex": "Female", "cases": 2, "_timestamp": "2026-03-09T10:00:00Z"},
		{"facility": "Bo Clinic", "sex": "Female", "cases": 5, "_timestamp": "2026-03-21T10:00:00Z"},
		{"facility": "Bo Clinic", "sex": "Male", "cases": 1, "_timestamp": "2026-04-02T10:00:00Z"},
		{"facility": "Kailahun CHC", "sex": "Male", "cases": 4, "_timestamp": "2026-04-11T10:00:00Z"},
		{"facility": "Bo Clinic", "sex": "Female", "cases": 2, "_timestamp": "2026-04-19T10:00:00Z"},
		{"sex": "Male", "cases": 7, "_timestamp": "2026-04-25T10:00:00Z"},
	}
	shuffled := make([]models.Record, len(records))
	copy(shuffled, records)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	byKey := func(rows []models.AggregateRow) map[string]models.AggregateRow {
		out := make(map[string]models.AggregateRow, len(rows))
		for _, row := range rows {
			out[row.Group()+constants.GroupKeySeparator+row.Period()] = row
		}
		return out
	}

	svc := NewAggregationService()
	first := svc.Aggregate(surveySchema(), records, []string{"facility"}, "")
	second := svc.Aggregate(surveySchema(), shuffled, []string{"facility"}, "")

	// row order may follow first appearance; the rows themselves must not
	require.Len(t, second, len(first))
	assert.Equal(t, byKey(first), byKey(second))
}
