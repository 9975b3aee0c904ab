package services

import (
	"context"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/dhis2"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// RemoteAPI is the slice of the DHIS2 client the services depend on.
// *dhis2.Client satisfies it; tests substitute deterministic fakes.
type RemoteAPI interface {
	SystemInfo(ctx context.Context) (*dhis2.SystemInfo, error)
	OrgUnits(ctx context.Context, level int) ([]models.OrgUnit, error)

	FindDataElements(ctx context.Context, filter string) ([]dhis2.MetaRef, error)
	CreateDataElement(ctx context.Context, payload map[string]interface{}) (string, error)

	FindDataSets(ctx context.Context, filter string) ([]dhis2.MetaRef, error)
	CreateDataSet(ctx context.Context, payload map[string]interface{}) (string, error)

	GetProgram(ctx context.Context, id string) (*dhis2.ProgramRef, error)
	FindPrograms(ctx context.Context, filter string) ([]dhis2.ProgramRef, error)
	ListPrograms(ctx context.Context, pageSize int) ([]dhis2.ProgramRef, error)
	CreateProgram(ctx context.Context, payload map[string]interface{}) (string, error)
	CreateProgramStage(ctx context.Context, payload map[string]interface{}) (string, error)
	FindProgramStages(ctx context.Context, programID string) ([]dhis2.MetaRef, error)

	GetOwner(ctx context.Context, collection, id string) (map[string]interface{}, error)
	UpdateObject(ctx context.Context, collection, id string, body map[string]interface{}) error

	PostDataValues(ctx context.Context, values []dhis2.DataValue) error
	PostEvent(ctx context.Context, event *dhis2.Event) (*dhis2.ImportResponse, error)
}
