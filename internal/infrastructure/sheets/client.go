package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// FieldDef is the label/name pair the store uses as its column header row
type FieldDef struct {
	Label string `json:"label"`
	Name  string `json:"name"`
}

// SystemFieldDefs are prepended to every submitted field list so the store's
// sheet always carries the record's system columns first.
var SystemFieldDefs = []FieldDef{
	{Label: "Record ID", Name: constants.KeyRecordID},
	{Label: "Timestamp", Name: constants.KeyTimestamp},
	{Label: "Synced", Name: constants.KeySynced},
}

// Client talks to the spreadsheet-backed store relay. Every mutation is a
// POST of a flat action envelope; the store always answers {success, ...}.
type Client struct {
	scriptURL string
	http      *http.Client
}

// NewClient creates a store client for one relay script URL
func NewClient(scriptURL string) *Client {
	return &Client{
		scriptURL: scriptURL,
		http:      &http.Client{Timeout: 45 * time.Second},
	}
}

// Configured reports whether a script URL is present
func (c *Client) Configured() bool {
	return c.scriptURL != ""
}

// SubmitRequest is the record-submission envelope
type SubmitRequest struct {
	Action       string        `json:"action"`
	FormTitle    string        `json:"formTitle"`
	FormID       string        `json:"formId,omitempty"`
	OldFormTitle string        `json:"oldFormTitle,omitempty"`
	SyncSchema   bool          `json:"syncSchema"`
	Fields       []FieldDef    `json:"fields"`
	Data         models.Record `json:"data"`
}

// Submit appends one record row, creating or re-headering the sheet when the
// schema changed
func (c *Client) Submit(ctx context.Context, req *SubmitRequest) error {
	req.Action = constants.ActionSubmit
	req.SyncSchema = true
	_, err := c.post(ctx, req)
	return err
}

// GetData loads up to limit records for a form title
func (c *Client) GetData(ctx context.Context, formTitle string, limit int) ([]models.Record, error) {
	q := url.Values{}
	q.Set("action", constants.ActionGetData)
	q.Set("formTitle", formTitle)
	q.Set("limit", strconv.Itoa(limit))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.scriptURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var body struct {
		Success bool            `json:"success"`
		Error   string          `json:"error"`
		Data    []models.Record `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("store returned a non-JSON body: %w", err)
	}
	if !body.Success {
		return nil, fmt.Errorf("store refused getData: %s", body.Error)
	}
	return body.Data, nil
}

// SaveForm upserts a serialized form entry in the cloud catalog
func (c *Client) SaveForm(ctx context.Context, email string, entry *models.FormEntry) error {
	formJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize form: %w", err)
	}
	_, err = c.post(ctx, map[string]interface{}{
		"action":   constants.ActionSaveForm,
		"email":    email,
		"formId":   entry.ID,
		"formData": string(formJSON),
	})
	return err
}

// LoadForms fetches the caller's cloud form catalog
func (c *Client) LoadForms(ctx context.Context, email string) ([]models.FormEntry, error) {
	raw, err := c.post(ctx, map[string]interface{}{
		"action": constants.ActionLoadForms,
		"email":  email,
	})
	if err != nil {
		return nil, err
	}
	var body struct {
		Forms []models.FormEntry `json:"forms"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode forms: %w", err)
	}
	return body.Forms, nil
}

// DeleteForm removes a form entry and, when requested, its data sheet
func (c *Client) DeleteForm(ctx context.Context, email, formID, formTitle string) error {
	_, err := c.post(ctx, map[string]interface{}{
		"action":      constants.ActionDeleteForm,
		"email":       email,
		"formId":      formID,
		"formTitle":   formTitle,
		"deleteSheet": "true",
	})
	return err
}

// SaveCascadeData stores a large cascade option table out-of-band
func (c *Client) SaveCascadeData(ctx context.Context, cascadeID, compressed string, columns []string) error {
	_, err := c.post(ctx, map[string]interface{}{
		"action":    constants.ActionSaveCascadeData,
		"cascadeId": cascadeID,
		"data":      compressed,
		"columns":   columns,
	})
	return err
}

// GetCascadeData loads a cascade option table by id
func (c *Client) GetCascadeData(ctx context.Context, cascadeID string) (string, []string, error) {
	raw, err := c.post(ctx, map[string]interface{}{
		"action":    constants.ActionGetCascadeData,
		"cascadeId": cascadeID,
	})
	if err != nil {
		return "", nil, err
	}
	var body struct {
		Data    string   `json:"data"`
		Columns []string `json:"columns"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", nil, fmt.Errorf("failed to decode cascade data: %w", err)
	}
	return body.Data, body.Columns, nil
}

// Ping reports whether the store endpoint answers at all. Any HTTP reply
// counts as reachable; only transport-level failures mean offline.
func (c *Client) Ping(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.scriptURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// post sends one action envelope and enforces the {success} contract.
// Content-Type stays text/plain: the relay rejects preflighted requests.
func (c *Client) post(ctx context.Context, payload interface{}) (json.RawMessage, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode store payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.scriptURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var check struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &check); err != nil {
		return nil, fmt.Errorf("store returned a non-JSON body: %w", err)
	}
	if !check.Success {
		if check.Error == "" {
			check.Error = "unknown store error"
		}
		return nil, fmt.Errorf("store rejected request: %s", check.Error)
	}
	return raw, nil
}
