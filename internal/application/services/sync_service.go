package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/dhis2"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	apperrors "github.com/mohamedsillahkanu/icf-collect/pkg/errors"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
	"github.com/mohamedsillahkanu/icf-collect/pkg/utils"
)

// ErrSyncInProgress is returned when a sync is requested for a form that is
// already mid-flight. Concurrent runs against the same remote objects would
// double-post data values.
var ErrSyncInProgress = errors.New("sync already in progress for this form")

// RecordStore is the record persistence surface the services need
type RecordStore interface {
	Insert(ctx context.Context, formID string, record models.Record) error
	Update(ctx context.Context, formID string, record models.Record) error
	List(ctx context.Context, formID string) ([]models.Record, error)
	ListUnsynced(ctx context.Context, formID string) ([]models.Record, error)
	Count(ctx context.Context, formID string) (total, synced int, err error)
}

// APIFactory builds a remote client for a form's connection settings.
// Each form can point at a different server with different credentials.
type APIFactory func(cfg *models.RemoteConfig) RemoteAPI

// SyncService orchestrates the two upload flows: aggregate rows to a
// dataset, or individual records as events to a program stage. Both flows
// reconcile remote metadata first so a fresh or reset server self-heals.
type SyncService struct {
	newAPI      APIFactory
	aggregator  *AggregationService
	records     RecordStore
	persistForm func(ctx context.Context, form *models.FormEntry) error

	metaDelay time.Duration
	dataDelay time.Duration
	inFlight  sync.Map
}

// NewSyncService creates the orchestrator. persistForm is shared with the
// reconciler so mappings survive a crash mid-setup.
func NewSyncService(newAPI APIFactory, aggregator *AggregationService, records RecordStore, persistForm func(ctx context.Context, form *models.FormEntry) error) *SyncService {
	return &SyncService{
		newAPI:      newAPI,
		aggregator:  aggregator,
		records:     records,
		persistForm: persistForm,
		metaDelay:   constants.MetadataCreateDelay,
		dataDelay:   constants.DataWriteDelay,
	}
}

// SetDelays overrides the inter-call throttles, used by tests
func (s *SyncService) SetDelays(meta, data time.Duration) {
	s.metaDelay = meta
	s.dataDelay = data
}

// TestConnection probes the remote endpoint and reports the system name
// plus the org units visible at the configured level.
func (s *SyncService) TestConnection(ctx context.Context, cfg *models.RemoteConfig) (*dhis2.SystemInfo, []models.OrgUnit, error) {
	if !cfg.Configured() {
		return nil, nil, apperrors.NewNotConfiguredError("remote connection")
	}
	api := s.newAPI(cfg)
	info, err := api.SystemInfo(ctx)
	if err != nil {
		return nil, nil, err
	}
	units, err := api.OrgUnits(ctx, orgLevel(cfg))
	if err != nil {
		// The probe itself succeeded; report it even if the unit fetch fails
		return info, nil, nil
	}
	return info, units, nil
}

// FetchOrgUnits lists the org units at the form's configured level
func (s *SyncService) FetchOrgUnits(ctx context.Context, cfg *models.RemoteConfig) ([]models.OrgUnit, error) {
	if !cfg.Configured() {
		return nil, apperrors.NewNotConfiguredError("remote connection")
	}
	return s.newAPI(cfg).OrgUnits(ctx, orgLevel(cfg))
}

// Sync runs the flow matching the form's sync mode. At most one sync per
// form runs at a time; overlapping requests get ErrSyncInProgress.
func (s *SyncService) Sync(ctx context.Context, form *models.FormEntry) (*models.SyncReport, error) {
	if form.Remote == nil || !form.Remote.Configured() {
		return nil, apperrors.NewNotConfiguredError("remote connection")
	}
	if _, busy := s.inFlight.LoadOrStore(form.ID, struct{}{}); busy {
		return nil, ErrSyncInProgress
	}
	defer s.inFlight.Delete(form.ID)

	if form.Remote.SyncMode == constants.SyncModeTracker {
		return s.syncEvents(ctx, form)
	}
	return s.syncAggregate(ctx, form)
}

// syncAggregate groups all records by (org unit, period) and posts one
// data-value batch per group. Aggregate uploads are idempotent on the
// remote side: re-posting a batch overwrites the same values.
func (s *SyncService) syncAggregate(ctx context.Context, form *models.FormEntry) (*models.SyncReport, error) {
	cfg := form.Remote
	if cfg.PeriodColumn == "" || cfg.OrgUnitColumn == "" {
		return nil, apperrors.NewNotConfiguredError("period and organisation unit columns")
	}

	slog := NewSyncLog()
	report := newReport(constants.SyncModeAggregate)
	api := s.newAPI(cfg)

	index, err := s.loadOrgUnits(ctx, api, cfg, slog)
	if err != nil {
		return nil, err
	}

	recon := NewReconcilerService(api, s.persistForm)
	recon.SetDelay(s.metaDelay)
	if err := recon.Setup(ctx, form, index, slog); err != nil {
		return nil, err
	}

	records, err := s.records.List(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		slog.Warning("No records to sync")
		return finishReport(report, slog), nil
	}

	rows := s.aggregator.Aggregate(&form.Schema, records, []string{cfg.OrgUnitColumn}, cfg.PeriodColumn)
	columns := s.aggregator.NumericColumns(&form.Schema, map[string]bool{
		cfg.PeriodColumn:  true,
		cfg.OrgUnitColumn: true,
	})
	slog.Info(fmt.Sprintf("Uploading %d aggregate rows...", len(rows)))

	for _, row := range rows {
		orgUnitID, ok := index.Resolve(row.Group())
		if !ok {
			report.Skipped++
			slog.Warning(fmt.Sprintf("  ⚠ No organisation unit matches %q, row skipped", row.Group()))
			continue
		}

		var values []dhis2.DataValue
		for _, col := range columns {
			elementID, ok := form.Mapping.ElementID(col)
			if !ok || elementID == "" {
				continue
			}
			raw, ok := row[col]
			if !ok {
				continue
			}
			values = append(values, dhis2.DataValue{
				DataElement: elementID,
				Value:       formatNumber(utils.ToFloat(raw)),
				Period:      row.Period(),
				OrgUnit:     orgUnitID,
			})
		}
		if len(values) == 0 {
			report.Skipped++
			continue
		}

		if err := api.PostDataValues(ctx, values); err != nil {
			report.Failed++
			slog.Error(fmt.Sprintf("  ✗ %s / %s: %v", row.Group(), row.Period(), err))
		} else {
			report.Success++
			slog.Success(fmt.Sprintf("  ✓ %s / %s: %d values", row.Group(), row.Period(), len(values)))
		}
		s.sleep(ctx)
	}

	return finishReport(report, slog), nil
}

// syncEvents posts each unsynced record as one completed event and records
// the per-record outcome, so a partial failure resumes where it left off.
func (s *SyncService) syncEvents(ctx context.Context, form *models.FormEntry) (*models.SyncReport, error) {
	cfg := form.Remote
	slog := NewSyncLog()
	report := newReport(constants.SyncModeTracker)
	api := s.newAPI(cfg)

	index, err := s.loadOrgUnits(ctx, api, cfg, slog)
	if err != nil {
		return nil, err
	}

	recon := NewReconcilerService(api, s.persistForm)
	recon.SetDelay(s.metaDelay)
	if err := recon.Setup(ctx, form, index, slog); err != nil {
		return nil, err
	}
	if form.Mapping.ProgramID == "" {
		return nil, fmt.Errorf("event program is not available; create it on the server and retry")
	}

	pending, err := s.records.ListUnsynced(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		slog.Info("All records already synced")
		return finishReport(report, slog), nil
	}
	slog.Info(fmt.Sprintf("Syncing %d records...", len(pending)))

	fields := form.Schema.DataFields(cfg.PeriodColumn, cfg.OrgUnitColumn)
	for _, record := range pending {
		orgUnitID := s.resolveEventOrgUnit(record, cfg, index, slog)
		if orgUnitID == "" {
			report.Skipped++
			record.MarkFailed("no matching organisation unit")
			s.saveOutcome(ctx, form.ID, record, slog)
			continue
		}

		event := &dhis2.Event{
			Program:      form.Mapping.ProgramID,
			ProgramStage: form.Mapping.ProgramStageID,
			OrgUnit:      orgUnitID,
			EventDate:    eventDate(record, cfg),
			Status:       constants.EventStatusCompleted,
		}
		for i := range fields {
			f := &fields[i]
			elementID, ok := form.Mapping.ElementID(models.ColumnKeyFor(f, ""))
			if !ok || elementID == "" {
				continue
			}
			value := record.StringValue(f.Name)
			if value == "" {
				continue
			}
			event.DataValues = append(event.DataValues, dhis2.DataValue{
				DataElement: elementID,
				Value:       value,
			})
		}

		resp, err := api.PostEvent(ctx, event)
		switch {
		case err != nil:
			report.Failed++
			record.MarkFailed(err.Error())
			slog.Error(fmt.Sprintf("  ✗ Record %s: %v", record.ID(), err))
		case eventImported(resp):
			report.Success++
			record.MarkSynced(time.Now())
		default:
			report.Failed++
			reason := importFailureReason(resp)
			record.MarkFailed(reason)
			slog.Error(fmt.Sprintf("  ✗ Record %s: %s", record.ID(), reason))
		}
		s.saveOutcome(ctx, form.ID, record, slog)
		s.sleep(ctx)
	}

	slog.Success(fmt.Sprintf("✓ %d synced, %d failed, %d skipped", report.Success, report.Failed, report.Skipped))
	return finishReport(report, slog), nil
}

func (s *SyncService) loadOrgUnits(ctx context.Context, api RemoteAPI, cfg *models.RemoteConfig, slog *SyncLog) (*dhis2.OrgUnitIndex, error) {
	units, err := api.OrgUnits(ctx, orgLevel(cfg))
	if err != nil {
		return nil, err
	}
	index := dhis2.NewOrgUnitIndex(units)
	if index.Len() == 0 {
		return nil, fmt.Errorf("no organisation units found at level %d", orgLevel(cfg))
	}
	slog.Info(fmt.Sprintf("Loaded %d organisation units", index.Len()))
	return index, nil
}

// resolveEventOrgUnit matches the record's org-unit value against the index.
// When nothing matches, the record is skipped unless the form explicitly
// opted into first-unit attribution.
func (s *SyncService) resolveEventOrgUnit(record models.Record, cfg *models.RemoteConfig, index *dhis2.OrgUnitIndex, slog *SyncLog) string {
	value := ""
	if cfg.OrgUnitColumn != "" {
		value = record.StringValue(cfg.OrgUnitColumn)
	}
	if value != "" {
		if id, ok := index.Resolve(value); ok {
			return id
		}
		slog.Warning(fmt.Sprintf("  ⚠ No organisation unit matches %q", value))
	}
	if cfg.AllowOrgUnitFallback {
		if id, ok := index.First(); ok {
			slog.Warning("  ⚠ Attributing record to the first known organisation unit")
			return id
		}
	}
	return ""
}

func (s *SyncService) saveOutcome(ctx context.Context, formID string, record models.Record, slog *SyncLog) {
	if err := s.records.Update(ctx, formID, record); err != nil {
		slog.Warning(fmt.Sprintf("  ⚠ Could not save sync state for record %s: %v", record.ID(), err))
	}
}

func (s *SyncService) sleep(ctx context.Context) {
	if s.dataDelay <= 0 {
		return
	}
	select {
	case <-time.After(s.dataDelay):
	case <-ctx.Done():
	}
}

func orgLevel(cfg *models.RemoteConfig) int {
	if cfg.OrgUnitLevel > 0 {
		return cfg.OrgUnitLevel
	}
	return constants.DefaultOrgUnitLevel
}

// eventDate derives the event's date: a parseable period value wins, then
// the record's capture time, then today.
func eventDate(record models.Record, cfg *models.RemoteConfig) string {
	if cfg.PeriodColumn != "" {
		if date, ok := utils.PeriodToDate(record.StringValue(cfg.PeriodColumn)); ok {
			return date
		}
	}
	if ts := record.Timestamp(); !ts.IsZero() {
		return ts.Format("2006-01-02")
	}
	return time.Now().Format("2006-01-02")
}

// eventImported requires a positive signal before marking a record synced:
// an import count, or per-item summaries that all report success. A response
// body carrying neither is a rejection, not a bare acknowledgement.
func eventImported(resp *dhis2.ImportResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Imported > 0 || resp.Updated > 0 {
		return true
	}
	if resp.Ignored > 0 || len(resp.ImportSummaries) == 0 {
		return false
	}
	for _, s := range resp.ImportSummaries {
		if s.Status != "" && s.Status != "SUCCESS" && s.Status != "OK" {
			return false
		}
	}
	return true
}

func importFailureReason(resp *dhis2.ImportResponse) string {
	for _, s := range resp.ImportSummaries {
		if s.Description != "" {
			return s.Description
		}
	}
	return "event rejected by the server"
}

func newReport(mode constants.SyncMode) *models.SyncReport {
	return &models.SyncReport{Mode: string(mode), StartedAt: time.Now()}
}

func finishReport(report *models.SyncReport, slog *SyncLog) *models.SyncReport {
	report.EndedAt = time.Now()
	report.Log = slog.Entries()
	return report
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
