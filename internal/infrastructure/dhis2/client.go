package dhis2

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/transport"
	apperrors "github.com/mohamedsillahkanu/icf-collect/pkg/errors"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// Sender abstracts the transport router so tests can inject fakes
type Sender interface {
	Send(ctx context.Context, target, method string, creds transport.Credentials, payload interface{}) (*transport.Response, error)
}

// Client talks to a DHIS2-shaped REST endpoint through the proxy router
type Client struct {
	sender  Sender
	baseURL string
	creds   transport.Credentials
}

// NewClient binds a sender to one remote instance's URL and credentials
func NewClient(sender Sender, cfg *models.RemoteConfig) *Client {
	return &Client{
		sender:  sender,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		creds:   transport.Credentials{Username: cfg.Username, Password: cfg.Password},
	}
}

// Request performs one API call and fails on definitive remote rejection
func (c *Client) Request(ctx context.Context, endpoint, method string, payload interface{}) (*transport.Response, error) {
	target := c.baseURL + "/api/" + endpoint
	resp, err := c.sender.Send(ctx, target, method, c.creds, payload)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, apperrors.NewRemoteRejectionError(resp.Status, resp.Error)
	}
	return resp, nil
}

// SystemInfo probes the instance and returns its self-reported identity
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	resp, err := c.Request(ctx, "system/info.json", http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var info SystemInfo
	if err := resp.Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode system info: %w", err)
	}
	if info.SystemName == "" {
		return nil, fmt.Errorf("remote did not identify itself as a DHIS2 instance")
	}
	return &info, nil
}

// OrgUnits fetches every organisation unit at the given hierarchy level
func (c *Client) OrgUnits(ctx context.Context, level int) ([]models.OrgUnit, error) {
	endpoint := fmt.Sprintf("organisationUnits.json?fields=id,name,displayName,code&filter=level:eq:%d&paging=false", level)
	resp, err := c.Request(ctx, endpoint, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		OrganisationUnits []models.OrgUnit `json:"organisationUnits"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode org units: %w", err)
	}
	return body.OrganisationUnits, nil
}

// FindDataElements searches data elements with one remote filter expression,
// e.g. "code:eq:SEX_MALE" or "name:ilike:Sex (Male)".
func (c *Client) FindDataElements(ctx context.Context, filter string) ([]MetaRef, error) {
	endpoint := "dataElements.json?filter=" + escapeFilter(filter) + "&fields=id,name"
	resp, err := c.Request(ctx, endpoint, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var body envelope
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode data elements: %w", err)
	}
	return body.DataElements, nil
}

// CreateDataElement posts a new data element and returns its uid
func (c *Client) CreateDataElement(ctx context.Context, payload map[string]interface{}) (string, error) {
	return c.createObject(ctx, "dataElements", payload)
}

// FindDataSets searches datasets with one filter expression
func (c *Client) FindDataSets(ctx context.Context, filter string) ([]MetaRef, error) {
	endpoint := "dataSets.json?filter=" + escapeFilter(filter) + "&fields=id,name"
	resp, err := c.Request(ctx, endpoint, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var body envelope
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode data sets: %w", err)
	}
	return body.DataSets, nil
}

// GetOwner fetches the full owned definition of a container for merge-update
func (c *Client) GetOwner(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	resp, err := c.Request(ctx, collection+"/"+id+".json?fields=:owner", http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	body := resp.Body()
	if body == nil {
		return nil, fmt.Errorf("unexpected %s definition shape for %s", collection, id)
	}
	return body, nil
}

// UpdateObject writes back a full object definition
func (c *Client) UpdateObject(ctx context.Context, collection, id string, body map[string]interface{}) error {
	_, err := c.Request(ctx, collection+"/"+id, http.MethodPut, body)
	return err
}

// CreateDataSet posts a new dataset and returns its uid
func (c *Client) CreateDataSet(ctx context.Context, payload map[string]interface{}) (string, error) {
	return c.createObject(ctx, "dataSets", payload)
}

// GetProgram fetches one program by id with its stage ids
func (c *Client) GetProgram(ctx context.Context, id string) (*ProgramRef, error) {
	resp, err := c.Request(ctx, "programs/"+id+".json?fields=id,name,programStages[id]", http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var prog ProgramRef
	if err := resp.Decode(&prog); err != nil {
		return nil, fmt.Errorf("failed to decode program: %w", err)
	}
	if prog.ID == "" {
		return nil, apperrors.NewNotFoundError("program", id)
	}
	return &prog, nil
}

// FindPrograms searches programs with one filter expression
func (c *Client) FindPrograms(ctx context.Context, filter string) ([]ProgramRef, error) {
	endpoint := "programs.json?filter=" + escapeFilter(filter) + "&fields=id,name,programStages[id]"
	resp, err := c.Request(ctx, endpoint, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var body envelope
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode programs: %w", err)
	}
	return body.Programs, nil
}

// ListPrograms pages through programs for last-resort fuzzy matching
func (c *Client) ListPrograms(ctx context.Context, pageSize int) ([]ProgramRef, error) {
	endpoint := fmt.Sprintf("programs.json?fields=id,name,programStages[id]&pageSize=%d", pageSize)
	resp, err := c.Request(ctx, endpoint, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var body envelope
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode programs: %w", err)
	}
	return body.Programs, nil
}

// CreateProgram posts a new event program and returns its uid
func (c *Client) CreateProgram(ctx context.Context, payload map[string]interface{}) (string, error) {
	return c.createObject(ctx, "programs", payload)
}

// CreateProgramStage posts a new program stage and returns its uid
func (c *Client) CreateProgramStage(ctx context.Context, payload map[string]interface{}) (string, error) {
	return c.createObject(ctx, "programStages", payload)
}

// FindProgramStages lists stages of a program
func (c *Client) FindProgramStages(ctx context.Context, programID string) ([]MetaRef, error) {
	endpoint := "programStages.json?filter=" + escapeFilter("program.id:eq:"+programID) + "&fields=id,name"
	resp, err := c.Request(ctx, endpoint, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	var body envelope
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode program stages: %w", err)
	}
	return body.ProgramStages, nil
}

// PostDataValues submits one aggregate data-value batch
func (c *Client) PostDataValues(ctx context.Context, values []DataValue) error {
	payload := map[string]interface{}{"dataValues": values}
	_, err := c.Request(ctx, "dataValueSets", http.MethodPost, payload)
	return err
}

// PostEvent submits one event and reports whether the remote imported it
func (c *Client) PostEvent(ctx context.Context, event *Event) (*ImportResponse, error) {
	resp, err := c.Request(ctx, "events", http.MethodPost, event)
	if err != nil {
		return nil, err
	}
	var body importEnvelope
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode import response: %w", err)
	}
	if body.Response == nil {
		return &ImportResponse{}, nil
	}
	return body.Response, nil
}

func (c *Client) createObject(ctx context.Context, collection string, payload map[string]interface{}) (string, error) {
	resp, err := c.Request(ctx, collection, http.MethodPost, payload)
	if err != nil {
		return "", err
	}
	var body importEnvelope
	if err := resp.Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	uid := body.ImportedUID()
	if uid == "" {
		return "", fmt.Errorf("create %s returned no uid: %s", collection, body.Message)
	}
	return uid, nil
}

// escapeFilter escapes the value part of a filter expression while keeping
// the property:operator prefix intact
func escapeFilter(filter string) string {
	parts := strings.SplitN(filter, ":", 3)
	if len(parts) != 3 {
		return url.QueryEscape(filter)
	}
	return parts[0] + ":" + parts[1] + ":" + url.QueryEscape(parts[2])
}
