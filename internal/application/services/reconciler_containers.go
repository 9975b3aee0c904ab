package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/dhis2"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
	"github.com/mohamedsillahkanu/icf-collect/pkg/utils"
)

// EnsureAggregateContainer resolves or creates the dataset grouping the
// form's elements, merging into an existing dataset rather than replacing
// it: other forms and other tooling may have contributed elements of their
// own, and a wholesale write would destroy them.
func (r *ReconcilerService) EnsureAggregateContainer(ctx context.Context, form *models.FormEntry, index *dhis2.OrgUnitIndex, elementIDs []string, slog *SyncLog) error {
	if len(elementIDs) == 0 {
		slog.Warning("⚠ No data elements to add to dataset")
		return nil
	}

	name := form.Schema.Settings.Title
	code := utils.GenerateCode(name, constants.MaxContainerCodeLength)
	slog.Info(fmt.Sprintf("Setting up Dataset: %s...", name))

	datasetID := ""
	if refs, err := r.api.FindDataSets(ctx, "code:eq:"+code); err == nil && len(refs) > 0 {
		datasetID = refs[0].ID
	} else if refs, err := r.api.FindDataSets(ctx, "name:eq:"+name); err == nil && len(refs) > 0 {
		datasetID = refs[0].ID
	}

	if datasetID != "" {
		slog.Info(fmt.Sprintf("  ↳ Dataset already exists: %s", name))
		form.Mapping.DatasetID = datasetID
		if err := r.mergeDataset(ctx, datasetID, elementIDs, index, slog); err != nil {
			slog.Warning(fmt.Sprintf("  ⚠ Could not update dataset: %v", err))
		}
		return r.persist(ctx, form)
	}

	payload := map[string]interface{}{
		"name":            name,
		"shortName":       utils.ShortName(name),
		"code":            code,
		"periodType":      form.Remote.PeriodType,
		"dataSetElements": datasetElementRefs("", elementIDs),
		"organisationUnits": orgUnitRefs(index),
	}

	slog.Info(fmt.Sprintf("  Creating dataset with %d elements...", len(elementIDs)))
	uid, createErr := r.api.CreateDataSet(ctx, payload)
	if createErr == nil && uid != "" {
		form.Mapping.DatasetID = uid
		slog.Success(fmt.Sprintf("  ✓ Dataset created: %s", name))
		return r.persist(ctx, form)
	}

	// Creation failed; a concurrent creator may have won. Search again
	// before conceding, widening from exact name to a contains match.
	if refs, err := r.api.FindDataSets(ctx, "name:eq:"+name); err == nil && len(refs) > 0 {
		form.Mapping.DatasetID = refs[0].ID
		slog.Info(fmt.Sprintf("  ↳ Dataset already exists: %s", name))
		if err := r.mergeDataset(ctx, refs[0].ID, elementIDs, index, slog); err != nil {
			slog.Warning(fmt.Sprintf("  ⚠ Could not update dataset: %v", err))
		}
		return r.persist(ctx, form)
	}
	if refs, err := r.api.FindDataSets(ctx, "name:ilike:"+name); err == nil && len(refs) > 0 {
		form.Mapping.DatasetID = refs[0].ID
		slog.Info(fmt.Sprintf("  ↳ Dataset already exists: %s", refs[0].Name))
		return r.persist(ctx, form)
	}

	slog.Info("  ⊘ Dataset setup skipped (may need manual creation)")
	return nil
}

// mergeDataset unions the required element refs into an existing dataset's
// owned definition and writes the whole object back
func (r *ReconcilerService) mergeDataset(ctx context.Context, datasetID string, elementIDs []string, index *dhis2.OrgUnitIndex, slog *SyncLog) error {
	full, err := r.api.GetOwner(ctx, "dataSets", datasetID)
	if err != nil {
		return err
	}

	existing := ownedElementIDs(full["dataSetElements"], "dataElement")
	merged := unionOrdered(elementIDs, existing)

	full["dataSetElements"] = datasetElementRefs(datasetID, merged)
	full["organisationUnits"] = orgUnitRefs(index)

	if err := r.api.UpdateObject(ctx, "dataSets", datasetID, full); err != nil {
		return err
	}
	newCount := countNew(elementIDs, existing)
	slog.Success(fmt.Sprintf("  ✓ Dataset updated: %d new elements added, %d total elements", newCount, len(merged)))
	return nil
}

// EnsureTrackerContainer resolves or creates the event program and its data
// entry stage, then assigns the form's elements to the stage in form order.
func (r *ReconcilerService) EnsureTrackerContainer(ctx context.Context, form *models.FormEntry, index *dhis2.OrgUnitIndex, elementIDs []string, slog *SyncLog) error {
	name := form.Schema.Settings.Title
	code := utils.GenerateCode(name, constants.MaxContainerCodeLength)

	programID, stageID := r.resolveProgram(ctx, form, name, code, index, slog)
	if programID == "" {
		slog.Info("  ⊘ Program could not be created (may need manual creation)")
		return nil
	}

	form.Mapping.ProgramID = programID

	if stageID == "" {
		stageID = r.ensureStage(ctx, programID, name, slog)
	}
	form.Mapping.ProgramStageID = stageID
	if err := r.persist(ctx, form); err != nil {
		slog.Warning(fmt.Sprintf("  ⚠ Could not persist mapping: %v", err))
	}

	if stageID == "" {
		slog.Warning("  ⚠ No Program Stage available - data elements not assigned")
		return nil
	}
	if len(elementIDs) == 0 {
		slog.Info("  ⊘ No data elements to add to Program Stage")
		return nil
	}

	if err := r.mergeStageElements(ctx, stageID, elementIDs, slog); err != nil {
		slog.Warning(fmt.Sprintf("  ⚠ Could not update Program Stage: %v", err))
	}
	slog.Success(fmt.Sprintf("Event Program ready: %s", name))
	return nil
}

// resolveProgram runs the program lookup ladder: configured id, code, exact
// name, create, then progressively fuzzier rediscovery after a failed create.
func (r *ReconcilerService) resolveProgram(ctx context.Context, form *models.FormEntry, name, code string, index *dhis2.OrgUnitIndex, slog *SyncLog) (programID, stageID string) {
	if cached := form.Mapping.ProgramID; cached != "" {
		if prog, err := r.api.GetProgram(ctx, cached); err == nil {
			return prog.ID, firstStage(prog)
		}
		slog.Warning(fmt.Sprintf("  ⚠ Cached program %s no longer exists, rediscovering...", cached))
	}

	if configured := form.Remote.ProgramID; configured != "" {
		slog.Info(fmt.Sprintf("Checking existing Program: %s...", configured))
		if prog, err := r.api.GetProgram(ctx, configured); err == nil {
			slog.Info(fmt.Sprintf("  ↳ Using existing Program: %s", prog.Name))
			return prog.ID, firstStage(prog)
		}
		slog.Info(fmt.Sprintf("  Program not found: %s, will create new...", configured))
	}

	slog.Info(fmt.Sprintf("Setting up Event Program: %s...", name))
	if progs, err := r.api.FindPrograms(ctx, "code:eq:"+code); err == nil && len(progs) > 0 {
		slog.Info(fmt.Sprintf("  ↳ Program already exists: %s (will add data elements to it)", progs[0].Name))
		return progs[0].ID, firstStage(&progs[0])
	}
	if progs, err := r.api.FindPrograms(ctx, "name:eq:"+name); err == nil && len(progs) > 0 {
		slog.Info(fmt.Sprintf("  ↳ Program already exists: %s (will add data elements to it)", progs[0].Name))
		return progs[0].ID, firstStage(&progs[0])
	}

	payload := map[string]interface{}{
		"name":              name,
		"shortName":         utils.ShortName(name),
		"code":              code,
		"programType":       constants.ProgramTypeEvent,
		"organisationUnits": orgUnitRefs(index),
	}
	uid, createErr := r.api.CreateProgram(ctx, payload)
	if createErr == nil && uid != "" {
		slog.Success(fmt.Sprintf("  ✓ Program created: %s", name))
		r.sleep(ctx)
		return uid, r.ensureStage(ctx, uid, name, slog)
	}

	// Create failed: search again wider before giving up
	if progs, err := r.api.FindPrograms(ctx, "name:eq:"+name); err == nil && len(progs) > 0 {
		slog.Info(fmt.Sprintf("  ↳ Program already exists: %s (will add data elements to it)", progs[0].Name))
		return progs[0].ID, firstStage(&progs[0])
	}
	if progs, err := r.api.FindPrograms(ctx, "name:ilike:"+name); err == nil && len(progs) > 0 {
		slog.Info(fmt.Sprintf("  ↳ Program already exists: %s (will add data elements to it)", progs[0].Name))
		return progs[0].ID, firstStage(&progs[0])
	}
	if progs, err := r.api.ListPrograms(ctx, 100); err == nil {
		needle := strings.ToLower(name)
		for i := range progs {
			candidate := strings.ToLower(progs[i].Name)
			if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
				slog.Info(fmt.Sprintf("  ↳ Program found: %s (will add data elements to it)", progs[i].Name))
				return progs[i].ID, firstStage(&progs[i])
			}
		}
	}
	return "", ""
}

// ensureStage creates the data entry stage, falling back to rediscovering an
// existing one when creation fails
func (r *ReconcilerService) ensureStage(ctx context.Context, programID, programName string, slog *SyncLog) string {
	payload := map[string]interface{}{
		"name":      programName + " - Data Entry",
		"program":   map[string]interface{}{"id": programID},
		"sortOrder": 1,
	}
	uid, err := r.api.CreateProgramStage(ctx, payload)
	if err == nil && uid != "" {
		slog.Success("  ✓ Program Stage created")
		return uid
	}

	if stages, err := r.api.FindProgramStages(ctx, programID); err == nil && len(stages) > 0 {
		slog.Info("  ↳ Program Stage already exists")
		return stages[0].ID
	}
	slog.Warning("  ⚠ Could not create or find Program Stage")
	return ""
}

// mergeStageElements unions the required elements into the stage definition,
// form order first, keeping whatever other tooling already assigned
func (r *ReconcilerService) mergeStageElements(ctx context.Context, stageID string, elementIDs []string, slog *SyncLog) error {
	slog.Info(fmt.Sprintf("Adding %d data elements to Program Stage...", len(elementIDs)))

	full, err := r.api.GetOwner(ctx, "programStages", stageID)
	if err != nil {
		return err
	}

	existing := ownedElementIDs(full["programStageDataElements"], "dataElement")
	ordered := unionOrdered(elementIDs, existing)

	psde := make([]map[string]interface{}, 0, len(ordered))
	for i, id := range ordered {
		psde = append(psde, map[string]interface{}{
			"dataElement": map[string]interface{}{"id": id},
			"compulsory":  false,
			"sortOrder":   i + 1,
		})
	}
	full["programStageDataElements"] = psde

	if err := r.api.UpdateObject(ctx, "programStages", stageID, full); err != nil {
		return err
	}
	newCount := countNew(elementIDs, existing)
	slog.Success(fmt.Sprintf("  ✓ Program Stage updated: %d new elements added, %d total", newCount, len(ordered)))
	return nil
}

// helpers shared by both containers

func firstStage(prog *dhis2.ProgramRef) string {
	if len(prog.ProgramStages) > 0 {
		return prog.ProgramStages[0].ID
	}
	return ""
}

// ownedElementIDs extracts data-element ids from an owned container's
// reference list, which decodes as loosely typed JSON
func ownedElementIDs(raw interface{}, refKey string) []string {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var ids []string
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ref, ok := obj[refKey].(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := ref["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// unionOrdered keeps required ids in form order and appends pre-existing
// extras that the form does not know about
func unionOrdered(required, existing []string) []string {
	seen := make(map[string]bool, len(required))
	out := make([]string, 0, len(required)+len(existing))
	for _, id := range required {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range existing {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func countNew(required, existing []string) int {
	has := make(map[string]bool, len(existing))
	for _, id := range existing {
		has[id] = true
	}
	n := 0
	for _, id := range required {
		if !has[id] {
			n++
		}
	}
	return n
}

func datasetElementRefs(datasetID string, elementIDs []string) []map[string]interface{} {
	refs := make([]map[string]interface{}, 0, len(elementIDs))
	for _, id := range elementIDs {
		ref := map[string]interface{}{
			"dataElement": map[string]interface{}{"id": id},
		}
		if datasetID != "" {
			ref["dataSet"] = map[string]interface{}{"id": datasetID}
		}
		refs = append(refs, ref)
	}
	return refs
}

func orgUnitRefs(index *dhis2.OrgUnitIndex) []map[string]interface{} {
	units := index.Units()
	refs := make([]map[string]interface{}, 0, len(units))
	for _, ou := range units {
		refs = append(refs, map[string]interface{}{"id": ou.ID})
	}
	return refs
}
