package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/sheets"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	apperrors "github.com/mohamedsillahkanu/icf-collect/pkg/errors"
	"github.com/mohamedsillahkanu/icf-collect/pkg/fieldtypes"
	"github.com/mohamedsillahkanu/icf-collect/pkg/formula"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
	"github.com/mohamedsillahkanu/icf-collect/pkg/utils"
)

// SheetStore is the spreadsheet relay surface the record service needs
type SheetStore interface {
	Configured() bool
	Submit(ctx context.Context, req *sheets.SubmitRequest) error
	GetData(ctx context.Context, formTitle string, limit int) ([]models.Record, error)
}

// OutboxQueue accepts submissions that could not reach the store
type OutboxQueue interface {
	Enqueue(ctx context.Context, formID, formTitle string, payload interface{}) (string, error)
}

// RecordService handles record intake: validation, derived values, local
// persistence, and delivery to the spreadsheet store. A store failure never
// loses the record; it lands in the outbox and retries later.
type RecordService struct {
	store      SheetStore
	records    RecordStore
	outbox     OutboxQueue
	aggregator *AggregationService
	formulas   *formula.Engine
}

// NewRecordService creates a new RecordService
func NewRecordService(store SheetStore, records RecordStore, outbox OutboxQueue, aggregator *AggregationService) *RecordService {
	return &RecordService{
		store:      store,
		records:    records,
		outbox:     outbox,
		aggregator: aggregator,
		formulas:   formula.NewEngine(),
	}
}

// Submit validates and stores one record, returning it with its assigned
// identity and sync state. Calculation fields are always recomputed server
// side; client-supplied values for them are untrusted.
func (s *RecordService) Submit(ctx context.Context, form *models.FormEntry, record models.Record) (models.Record, error) {
	if record == nil {
		return nil, apperrors.NewValidationError("record", "record payload is required")
	}
	if err := s.validate(&form.Schema, record); err != nil {
		return nil, err
	}

	if record.ID() == "" {
		record[constants.KeyRecordID] = utils.GenerateID()
	}
	record[constants.KeyTimestamp] = time.Now().Format(time.RFC3339)
	record[constants.KeySynced] = false

	s.applyCalculations(&form.Schema, record)

	if s.store != nil && s.store.Configured() {
		req := s.submitRequest(form, record)
		if err := s.store.Submit(ctx, req); err != nil {
			record[constants.KeyOffline] = true
			if _, qerr := s.outbox.Enqueue(ctx, form.ID, form.Schema.Settings.Title, req); qerr != nil {
				return nil, fmt.Errorf("store unreachable and queueing failed: %w", qerr)
			}
		}
	}

	if err := s.records.Insert(ctx, form.ID, record); err != nil {
		return nil, err
	}
	return record, nil
}

// List returns a form's records, optionally narrowed by a filter
func (s *RecordService) List(ctx context.Context, formID string, filter *models.RecordFilter) ([]models.Record, error) {
	records, err := s.records.List(ctx, formID)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return records, nil
	}
	var out []models.Record
	for _, r := range records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// AggregateView returns the grouped summary rows for a form's records,
// honoring the form's grouping settings and an optional record filter.
// Forms without grouping settings collapse into a single group per period.
func (s *RecordService) AggregateView(ctx context.Context, form *models.FormEntry, filter *models.RecordFilter) ([]models.AggregateRow, error) {
	records, err := s.List(ctx, form.ID, filter)
	if err != nil {
		return nil, err
	}
	periodCol := ""
	if form.Remote != nil {
		periodCol = form.Remote.PeriodColumn
	}
	return s.aggregator.Aggregate(&form.Schema, records, form.Schema.Settings.GroupingColumns(), periodCol), nil
}

// Counts reports total and synced record counts for a form
func (s *RecordService) Counts(ctx context.Context, formID string) (total, synced int, err error) {
	return s.records.Count(ctx, formID)
}

// PullRemote fetches a form's rows straight from the spreadsheet store
func (s *RecordService) PullRemote(ctx context.Context, form *models.FormEntry, limit int) ([]models.Record, error) {
	if s.store == nil || !s.store.Configured() {
		return nil, apperrors.NewNotConfiguredError("spreadsheet store")
	}
	return s.store.GetData(ctx, form.Schema.Settings.Title, limit)
}

func (s *RecordService) submitRequest(form *models.FormEntry, record models.Record) *sheets.SubmitRequest {
	defs := make([]sheets.FieldDef, 0, len(sheets.SystemFieldDefs)+len(form.Schema.Fields))
	defs = append(defs, sheets.SystemFieldDefs...)
	for _, f := range form.Schema.DataFields() {
		defs = append(defs, sheets.FieldDef{Label: f.Label, Name: f.Name})
	}
	return &sheets.SubmitRequest{
		FormTitle:    form.Schema.Settings.Title,
		FormID:       form.Schema.Settings.FormID,
		OldFormTitle: form.Schema.Settings.OriginalTitle,
		Fields:       defs,
		Data:         record,
	}
}

func (s *RecordService) applyCalculations(schema *models.FormSchema, record models.Record) {
	for i := range schema.Fields {
		f := &schema.Fields[i]
		if f.Type != constants.FieldTypeCalculation || f.Formula == nil || *f.Formula == "" {
			continue
		}
		value, err := s.formulas.EvaluateNumber(*f.Formula, record)
		if err != nil {
			record[f.Name] = ""
			continue
		}
		record[f.Name] = value
	}
}

func (s *RecordService) validate(schema *models.FormSchema, record models.Record) error {
	for _, f := range schema.DataFields() {
		value := record.StringValue(f.Name)

		if f.Required && value == "" && f.Type != constants.FieldTypeCalculation {
			return apperrors.NewValidationError(f.Name, fmt.Sprintf("%s is required", f.Label))
		}
		if value == "" {
			continue
		}

		if fieldtypes.IsNumeric(f.Type) && f.Type != constants.FieldTypeCalculation {
			n := utils.ToFloat(record[f.Name])
			if f.MinValue != nil && n < *f.MinValue {
				return apperrors.NewValidationError(f.Name, fmt.Sprintf("%s must be at least %v", f.Label, *f.MinValue))
			}
			if f.MaxValue != nil && n > *f.MaxValue {
				return apperrors.NewValidationError(f.Name, fmt.Sprintf("%s must be at most %v", f.Label, *f.MaxValue))
			}
		}

		if f.Type == constants.FieldTypeSelect || f.Type == constants.FieldTypeRadio || f.Type == constants.FieldTypeYesNo {
			if options := f.OptionValues(); len(options) > 0 && !containsOption(options, value) {
				return apperrors.NewValidationError(f.Name, fmt.Sprintf("%s has no option %q", f.Label, value))
			}
		}

		if f.MinLength != nil && len(value) < *f.MinLength {
			return apperrors.NewValidationError(f.Name, fmt.Sprintf("%s must be at least %d characters", f.Label, *f.MinLength))
		}
		if f.MaxLength != nil && len(value) > *f.MaxLength {
			return apperrors.NewValidationError(f.Name, fmt.Sprintf("%s must be at most %d characters", f.Label, *f.MaxLength))
		}
	}
	return nil
}
