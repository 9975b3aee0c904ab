package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/sheets"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	apperrors "github.com/mohamedsillahkanu/icf-collect/pkg/errors"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

type fakeSheets struct {
	configured bool
	failSubmit bool
	submitted  []*sheets.SubmitRequest
	remoteRows []models.Record
}

func (f *fakeSheets) Configured() bool { return f.configured }

func (f *fakeSheets) Submit(ctx context.Context, req *sheets.SubmitRequest) error {
	if f.failSubmit {
		return fmt.Errorf("store request failed: connection refused")
	}
	f.submitted = append(f.submitted, req)
	return nil
}

func (f *fakeSheets) GetData(ctx context.Context, formTitle string, limit int) ([]models.Record, error) {
	return f.remoteRows, nil
}

type fakeOutbox struct {
	entries []interface{}
}

func (f *fakeOutbox) Enqueue(ctx context.Context, formID, formTitle string, payload interface{}) (string, error) {
	f.entries = append(f.entries, payload)
	return fmt.Sprintf("ob%d", len(f.entries)), nil
}

func bmiForm() *models.FormEntry {
	formula := "weight / (height * height)"
	return &models.FormEntry{
		ID: "form1",
		Schema: models.FormSchema{
			Fields: []models.Field{
				{Name: "name", Label: "Name", Type: constants.FieldTypeText, Required: true},
				{Name: "weight", Label: "Weight", Type: constants.FieldTypeNumber, MinValue: floatPtr(0)},
				{Name: "height", Label: "Height", Type: constants.FieldTypeNumber},
				{Name: "bmi", Label: "BMI", Type: constants.FieldTypeCalculation, Formula: &formula},
				{Name: "consent", Label: "Consent", Type: constants.FieldTypeYesNo},
			},
			Settings: models.FormSettings{Title: "Nutrition Survey", FormID: "form1"},
		},
	}
}

func floatPtr(f float64) *float64 { return &f }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestRecordService_SubmitAssignsIdentity(t *testing.T) {
	store := &fakeSheets{configured: true}
	records := newFakeRecords()
	svc := NewRecordService(store, records, &fakeOutbox{}, NewAggregationService())

	saved, err := svc.Submit(context.Background(), bmiForm(), models.Record{
		"name": "Aminata", "weight": 60.0, "height": 1.5, "consent": "Yes",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID())
	assert.False(t, saved.Timestamp().IsZero())
	assert.False(t, saved.Synced())
	assert.InDelta(t, 26.67, saved["bmi"].(float64), 0.01)

	require.Len(t, store.submitted, 1)
	req := store.submitted[0]
	assert.Equal(t, "Nutrition Survey", req.FormTitle)
	// System columns lead the header row
	assert.Equal(t, constants.KeyRecordID, req.Fields[0].Name)
	require.Len(t, records.byForm["form1"], 1)
}

func TestRecordService_StoreFailureQueuesToOutbox(t *testing.T) {
	store := &fakeSheets{configured: true, failSubmit: true}
	records := newFakeRecords()
	outbox := &fakeOutbox{}
	svc := NewRecordService(store, records, outbox, NewAggregationService())

	saved, err := svc.Submit(context.Background(), bmiForm(), models.Record{
		"name": "Aminata", "weight": 60.0, "height": 1.5,
	})
	require.NoError(t, err)

	// The record is kept locally and flagged, never lost
	assert.Len(t, outbox.entries, 1)
	offline, _ := saved[constants.KeyOffline].(bool)
	assert.True(t, offline)
	require.Len(t, records.byForm["form1"], 1)
}

func TestRecordService_ValidationFailures(t *testing.T) {
	svc := NewRecordService(&fakeSheets{}, newFakeRecords(), &fakeOutbox{}, NewAggregationService())

	tests := []struct {
		name   string
		record models.Record
	}{
		{"missing required", models.Record{"weight": 60.0}},
		{"below minimum", models.Record{"name": "A", "weight": -4.0}},
		{"unknown option", models.Record{"name": "A", "consent": "Maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), bmiForm(), tt.record)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestRecordService_ListWithFilter(t *testing.T) {
	records := newFakeRecords()
	records.byForm["form1"] = []models.Record{
		{"_id": "r1", "name": "A", "consent": "Yes", "_timestamp": "2026-03-01T10:00:00Z"},
		{"_id": "r2", "name": "B", "consent": "No", "_timestamp": "2026-03-15T10:00:00Z"},
		{"_id": "r3", "name": "C", "consent": "Yes", "_timestamp": "2026-05-01T10:00:00Z"},
	}
	svc := NewRecordService(&fakeSheets{}, records, &fakeOutbox{}, NewAggregationService())

	end := mustTime(t, "2026-04-01T00:00:00Z")
	got, err := svc.List(context.Background(), "form1", &models.RecordFilter{
		End:    &end,
		Fields: map[string]string{"consent": "Yes"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID())
}

func tallyForm() *models.FormEntry {
	return &models.FormEntry{
		ID: "form1",
		Schema: models.FormSchema{
			Fields: []models.Field{
				{Name: "district", Label: "District", Type: constants.FieldTypeText},
				{Name: "facility", Label: "Facility", Type: constants.FieldTypeText},
				{Name: "cases", Label: "Cases", Type: constants.FieldTypeNumber},
			},
			Settings: models.FormSettings{
				Title:            "Malaria Tally",
				AggregateColumns: []string{"district", "facility"},
			},
		},
		Remote: &models.RemoteConfig{PeriodColumn: "period"},
	}
}

func TestRecordService_AggregateViewHonorsGroupingSettings(t *testing.T) {
	ctx := context.Background()
	records := newFakeRecords()
	for _, r := range []models.Record{
		{"_id": "r1", "district": "Bo", "facility": "Bo Clinic", "period": "202603", "cases": 2},
		{"_id": "r2", "district": "Bo", "facility": "Bo Clinic", "period": "202603", "cases": 3},
		{"_id": "r3", "district": "Kailahun", "facility": "Kailahun CHC", "period": "202603", "cases": 4},
	} {
		require.NoError(t, records.Insert(ctx, "form1", r))
	}

	svc := NewRecordService(&fakeSheets{}, records, &fakeOutbox{}, NewAggregationService())
	rows, err := svc.AggregateView(ctx, tallyForm(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	bo := rows[0]
	assert.Equal(t, "Bo | Bo Clinic", bo.Group())
	assert.Equal(t, "202603", bo.Period())
	assert.Equal(t, "Bo", bo[constants.GroupColumnPrefix+"district"])
	assert.Equal(t, "Bo Clinic", bo[constants.GroupColumnPrefix+"facility"])
	assert.Equal(t, 2, bo.Count())
	assert.Equal(t, 5.0, bo["cases"])

	assert.Equal(t, "Kailahun | Kailahun CHC", rows[1].Group())
}

func TestRecordService_AggregateViewAppliesFilter(t *testing.T) {
	ctx := context.Background()
	records := newFakeRecords()
	for _, r := range []models.Record{
		{"_id": "r1", "district": "Bo", "facility": "Bo Clinic", "period": "202603", "cases": 2},
		{"_id": "r2", "district": "Kailahun", "facility": "Kailahun CHC", "period": "202603", "cases": 4},
	} {
		require.NoError(t, records.Insert(ctx, "form1", r))
	}

	svc := NewRecordService(&fakeSheets{}, records, &fakeOutbox{}, NewAggregationService())
	filter := &models.RecordFilter{Fields: map[string]string{"district": "Bo"}}
	rows, err := svc.AggregateView(ctx, tallyForm(), filter)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bo | Bo Clinic", rows[0].Group())
	assert.Equal(t, 1, rows[0].Count())
}

func TestRecordService_AggregateViewWithoutSettingsCollapsesToAll(t *testing.T) {
	ctx := context.Background()
	records := newFakeRecords()
	for _, r := range []models.Record{
		{"_id": "r1", "cases": 1, "_timestamp": "2026-03-02T08:00:00Z"},
		{"_id": "r2", "cases": 2, "_timestamp": "2026-03-15T08:00:00Z"},
	} {
		require.NoError(t, records.Insert(ctx, "form1", r))
	}

	form := &models.FormEntry{
		ID: "form1",
		Schema: models.FormSchema{
			Fields: []models.Field{
				{Name: "cases", Label: "Cases", Type: constants.FieldTypeNumber},
			},
			Settings: models.FormSettings{Title: "Bare Tally"},
		},
	}

	svc := NewRecordService(&fakeSheets{}, records, &fakeOutbox{}, NewAggregationService())
	rows, err := svc.AggregateView(ctx, form, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, constants.GroupValueAll, rows[0].Group())
	assert.Equal(t, "202603", rows[0].Period())
	assert.Equal(t, 3.0, rows[0]["cases"])
}
