package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/dhis2"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// fakeRemote is an in-memory stand-in for a DHIS2 instance. Created objects
// become findable by their code and name filters, like the real server.
type fakeRemote struct {
	mu sync.Mutex

	orgUnits []models.OrgUnit

	elements []fakeObject
	datasets []fakeObject
	programs []fakeObject
	stages   map[string][]dhis2.MetaRef // programID -> stages
	owners   map[string]map[string]interface{}

	createElementCalls int
	createDataSetCalls int
	createProgramCalls int
	createStageCalls   int
	updates            map[string]map[string]interface{}

	postedValues  [][]dhis2.DataValue
	postedEvents  []*dhis2.Event
	orgUnitLevels []int

	failCreates bool
	eventResp   *dhis2.ImportResponse
	eventErr    error
	nextID      int
}

type fakeObject struct {
	id   string
	name string
	code string
}

func newFakeRemote(units ...models.OrgUnit) *fakeRemote {
	if len(units) == 0 {
		units = []models.OrgUnit{{ID: "ou1", Name: "Kailahun District"}}
	}
	return &fakeRemote{
		orgUnits: units,
		stages:   map[string][]dhis2.MetaRef{},
		owners:   map[string]map[string]interface{}{},
		updates:  map[string]map[string]interface{}{},
	}
}

func (f *fakeRemote) genID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%03d", prefix, f.nextID)
}

func matchFilter(objects []fakeObject, filter string) []dhis2.MetaRef {
	var out []dhis2.MetaRef
	for _, o := range objects {
		matched := false
		switch {
		case strings.HasPrefix(filter, "code:eq:"):
			matched = o.code == strings.TrimPrefix(filter, "code:eq:")
		case strings.HasPrefix(filter, "name:eq:"):
			matched = o.name == strings.TrimPrefix(filter, "name:eq:")
		case strings.HasPrefix(filter, "name:ilike:"):
			needle := strings.ToLower(strings.TrimPrefix(filter, "name:ilike:"))
			matched = strings.Contains(strings.ToLower(o.name), needle)
		}
		if matched {
			out = append(out, dhis2.MetaRef{ID: o.id, Name: o.name})
		}
	}
	return out
}

func (f *fakeRemote) SystemInfo(ctx context.Context) (*dhis2.SystemInfo, error) {
	return &dhis2.SystemInfo{SystemName: "DHIS 2 Demo", Version: "2.40"}, nil
}

func (f *fakeRemote) OrgUnits(ctx context.Context, level int) ([]models.OrgUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgUnitLevels = append(f.orgUnitLevels, level)
	return f.orgUnits, nil
}

func (f *fakeRemote) FindDataElements(ctx context.Context, filter string) ([]dhis2.MetaRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return matchFilter(f.elements, filter), nil
}

func (f *fakeRemote) CreateDataElement(ctx context.Context, payload map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createElementCalls++
	if f.failCreates {
		return "", fmt.Errorf("409 conflict")
	}
	obj := fakeObject{
		id:   f.genID("de"),
		name: payload["name"].(string),
		code: payload["code"].(string),
	}
	f.elements = append(f.elements, obj)
	return obj.id, nil
}

func (f *fakeRemote) FindDataSets(ctx context.Context, filter string) ([]dhis2.MetaRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return matchFilter(f.datasets, filter), nil
}

func (f *fakeRemote) CreateDataSet(ctx context.Context, payload map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createDataSetCalls++
	if f.failCreates {
		return "", fmt.Errorf("409 conflict")
	}
	obj := fakeObject{
		id:   f.genID("ds"),
		name: payload["name"].(string),
		code: payload["code"].(string),
	}
	f.datasets = append(f.datasets, obj)
	f.owners["dataSets/"+obj.id] = map[string]interface{}{
		"id":              obj.id,
		"name":            obj.name,
		"dataSetElements": payload["dataSetElements"],
	}
	return obj.id, nil
}

func (f *fakeRemote) GetProgram(ctx context.Context, id string) (*dhis2.ProgramRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.programs {
		if p.id == id {
			prog := &dhis2.ProgramRef{ID: p.id, Name: p.name}
			for _, st := range f.stages[p.id] {
				prog.ProgramStages = append(prog.ProgramStages, dhis2.StageRef{ID: st.ID})
			}
			return prog, nil
		}
	}
	return nil, fmt.Errorf("program %s not found", id)
}

func (f *fakeRemote) FindPrograms(ctx context.Context, filter string) ([]dhis2.ProgramRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dhis2.ProgramRef
	for _, ref := range matchFilter(f.programs, filter) {
		prog := dhis2.ProgramRef{ID: ref.ID, Name: ref.Name}
		for _, st := range f.stages[ref.ID] {
			prog.ProgramStages = append(prog.ProgramStages, dhis2.StageRef{ID: st.ID})
		}
		out = append(out, prog)
	}
	return out, nil
}

func (f *fakeRemote) ListPrograms(ctx context.Context, pageSize int) ([]dhis2.ProgramRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dhis2.ProgramRef
	for _, p := range f.programs {
		out = append(out, dhis2.ProgramRef{ID: p.id, Name: p.name})
	}
	return out, nil
}

func (f *fakeRemote) CreateProgram(ctx context.Context, payload map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createProgramCalls++
	if f.failCreates {
		return "", fmt.Errorf("409 conflict")
	}
	obj := fakeObject{
		id:   f.genID("pr"),
		name: payload["name"].(string),
		code: payload["code"].(string),
	}
	f.programs = append(f.programs, obj)
	return obj.id, nil
}

func (f *fakeRemote) CreateProgramStage(ctx context.Context, payload map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createStageCalls++
	if f.failCreates {
		return "", fmt.Errorf("409 conflict")
	}
	programID := payload["program"].(map[string]interface{})["id"].(string)
	stage := dhis2.MetaRef{ID: f.genID("ps"), Name: payload["name"].(string)}
	f.stages[programID] = append(f.stages[programID], stage)
	f.owners["programStages/"+stage.ID] = map[string]interface{}{
		"id":   stage.ID,
		"name": stage.Name,
	}
	return stage.ID, nil
}

func (f *fakeRemote) FindProgramStages(ctx context.Context, programID string) ([]dhis2.MetaRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stages[programID], nil
}

func (f *fakeRemote) GetOwner(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.owners[collection+"/"+id]
	if !ok {
		return nil, fmt.Errorf("%s/%s not found", collection, id)
	}
	return obj, nil
}

func (f *fakeRemote) UpdateObject(ctx context.Context, collection, id string, body map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[collection+"/"+id] = body
	f.updates[collection+"/"+id] = body
	return nil
}

func (f *fakeRemote) PostDataValues(ctx context.Context, values []dhis2.DataValue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postedValues = append(f.postedValues, values)
	return nil
}

func (f *fakeRemote) PostEvent(ctx context.Context, event *dhis2.Event) (*dhis2.ImportResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postedEvents = append(f.postedEvents, event)
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	if f.eventResp != nil {
		return f.eventResp, nil
	}
	return &dhis2.ImportResponse{Imported: 1}, nil
}
