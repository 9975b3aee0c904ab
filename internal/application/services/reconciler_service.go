package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/dhis2"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/fieldtypes"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
	"github.com/mohamedsillahkanu/icf-collect/pkg/utils"
)

// ReconcilerService ensures the remote metadata objects mirroring a form
// schema exist, creating them when absent and merging into them when present.
//
// Each lookup walks code, then exact name, then a contains match before
// creating: remote systems key objects by code but humans rename labels, and
// a single-key lookup would mint a duplicate object on every rename.
type ReconcilerService struct {
	api     RemoteAPI
	persist func(ctx context.Context, form *models.FormEntry) error
	delay   time.Duration
}

// NewReconcilerService creates a reconciler. persist is called immediately
// after every successful remote creation so a crash-and-retry rediscovers
// objects instead of recreating them.
func NewReconcilerService(api RemoteAPI, persist func(ctx context.Context, form *models.FormEntry) error) *ReconcilerService {
	return &ReconcilerService{
		api:     api,
		persist: persist,
		delay:   constants.MetadataCreateDelay,
	}
}

// SetDelay overrides the inter-call throttle (tests run with zero)
func (r *ReconcilerService) SetDelay(d time.Duration) {
	r.delay = d
}

// EnsureDataElement resolves or creates one remote data element and returns
// its id. An empty id with nil error means the element was skipped: a single
// unresolvable element must not abort the whole reconciliation pass.
func (r *ReconcilerService) EnsureDataElement(ctx context.Context, mapping *models.RemoteMapping, columnKey, label, valueType, domain, aggregation string, slog *SyncLog) (string, error) {
	if id, ok := mapping.ElementID(columnKey); ok && id != "" {
		return id, nil
	}

	code := utils.GenerateCode(columnKey, constants.MaxElementCodeLength)
	cleanLabel := utils.CleanLabel(label)

	// 1) exact code match
	if refs, err := r.api.FindDataElements(ctx, "code:eq:"+code); err == nil && len(refs) > 0 {
		mapping.SetElementID(columnKey, refs[0].ID)
		slog.Info(fmt.Sprintf("  ↳ Already exists: %s", cleanLabel))
		return refs[0].ID, nil
	}

	// 2) exact cleaned-name match
	if refs, err := r.api.FindDataElements(ctx, "name:eq:"+cleanLabel); err == nil && len(refs) > 0 {
		mapping.SetElementID(columnKey, refs[0].ID)
		slog.Info(fmt.Sprintf("  ↳ Already exists: %s", cleanLabel))
		return refs[0].ID, nil
	}

	// 3) create
	payload := map[string]interface{}{
		"name":            cleanLabel,
		"shortName":       utils.ShortName(label),
		"code":            code,
		"domainType":      domain,
		"valueType":       valueType,
		"aggregationType": aggregation,
	}
	uid, createErr := r.api.CreateDataElement(ctx, payload)
	if createErr == nil && uid != "" {
		mapping.SetElementID(columnKey, uid)
		slog.Success(fmt.Sprintf("  ✓ Created: %s", cleanLabel))
		return uid, nil
	}

	// 4) creation failed, maybe a concurrent creator won the race:
	//    broaden to a contains match before giving up
	if refs, err := r.api.FindDataElements(ctx, "name:ilike:"+cleanLabel); err == nil && len(refs) > 0 {
		mapping.SetElementID(columnKey, refs[0].ID)
		slog.Info(fmt.Sprintf("  ↳ Already exists: %s", cleanLabel))
		return refs[0].ID, nil
	}

	slog.Info(fmt.Sprintf("  ⊘ Skipped: %s (may exist with different type)", cleanLabel))
	return "", nil
}

// elementSpec is one data element the current form requires
type elementSpec struct {
	columnKey   string
	label       string
	valueType   string
	aggregation string
}

// requiredElements classifies the form's data fields into the element set a
// sync mode needs. Aggregate mode drops text-like fields entirely (they
// cannot be summed) and decomposes categorical fields into one INTEGER
// indicator element per option; tracker mode takes every field as-is.
func (r *ReconcilerService) requiredElements(schema *models.FormSchema, mode constants.SyncMode, periodCol, orgUnitCol string, slog *SyncLog) []elementSpec {
	var specs []elementSpec
	for _, field := range schema.DataFields(periodCol, orgUnitCol) {
		f := field
		if mode == constants.SyncModeTracker {
			specs = append(specs, elementSpec{
				columnKey:   models.ColumnKeyFor(&f, ""),
				label:       models.ElementLabelFor(&f, ""),
				valueType:   fieldtypes.TrackerValueType(f.Type),
				aggregation: constants.AggregationNone,
			})
			continue
		}

		switch {
		case fieldtypes.IsTextBased(f.Type):
			slog.Info(fmt.Sprintf("  ⊘ Skipped: %s (%s cannot be aggregated)", f.Label, f.Type))

		case fieldtypes.IsCategorical(f.Type):
			for _, opt := range f.OptionValues() {
				specs = append(specs, elementSpec{
					columnKey:   models.ColumnKeyFor(&f, opt),
					label:       models.ElementLabelFor(&f, opt),
					valueType:   constants.ValueTypeInteger,
					aggregation: constants.AggregationSum,
				})
			}

		case fieldtypes.IsNumeric(f.Type):
			specs = append(specs, elementSpec{
				columnKey:   models.ColumnKeyFor(&f, ""),
				label:       models.ElementLabelFor(&f, ""),
				valueType:   constants.ValueTypeNumber,
				aggregation: constants.AggregationSum,
			})

		default:
			slog.Info(fmt.Sprintf("  ⊘ Skipped: %s (%s not supported in aggregate)", f.Label, f.Type))
		}
	}
	return specs
}

// Setup reconciles every remote object a form needs for its sync mode:
// data elements first, then the aggregate dataset or the tracker program.
func (r *ReconcilerService) Setup(ctx context.Context, form *models.FormEntry, index *dhis2.OrgUnitIndex, slog *SyncLog) error {
	cfg := form.Remote
	if !cfg.Configured() {
		return fmt.Errorf("remote connection not configured")
	}

	periodCol := cfg.PeriodColumn
	orgUnitCol := cfg.OrgUnitColumn
	slog.Info(fmt.Sprintf("Setting up remote metadata (%s mode)...", cfg.SyncMode))

	specs := r.requiredElements(&form.Schema, cfg.SyncMode, periodCol, orgUnitCol, slog)
	if len(specs) == 0 {
		return fmt.Errorf("no data fields to create remote elements for")
	}

	domain := constants.DomainAggregate
	if cfg.SyncMode == constants.SyncModeTracker {
		domain = constants.DomainTracker
	}

	slog.Info("Creating data elements...")
	var elementIDs []string
	for _, spec := range specs {
		id, err := r.EnsureDataElement(ctx, &form.Mapping, spec.columnKey, spec.label, spec.valueType, domain, spec.aggregation, slog)
		if err != nil {
			return fmt.Errorf("failed to ensure element %s: %w", spec.columnKey, err)
		}
		if id != "" {
			elementIDs = append(elementIDs, id)
			if err := r.persist(ctx, form); err != nil {
				slog.Warning(fmt.Sprintf("  ⚠ Could not persist mapping: %v", err))
			}
		}
		r.sleep(ctx)
	}
	slog.Success(fmt.Sprintf("✓ %d data elements ready", len(elementIDs)))

	if cfg.SyncMode == constants.SyncModeAggregate {
		return r.EnsureAggregateContainer(ctx, form, index, elementIDs, slog)
	}
	return r.EnsureTrackerContainer(ctx, form, index, elementIDs, slog)
}

func (r *ReconcilerService) sleep(ctx context.Context) {
	if r.delay <= 0 {
		return
	}
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
	}
}
