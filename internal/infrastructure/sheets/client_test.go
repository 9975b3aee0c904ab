package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// storeStub decodes each POST envelope and replies with canned bodies per action
type storeStub struct {
	t        *testing.T
	replies  map[string]string
	requests []map[string]interface{}
	headers  []string
}

func newStoreStub(t *testing.T) (*storeStub, *httptest.Server) {
	stub := &storeStub{t: t, replies: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			action := r.URL.Query().Get("action")
			io.WriteString(w, stub.reply(action))
			return
		}
		stub.headers = append(stub.headers, r.Header.Get("Content-Type"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(stub.t, err)
		var envelope map[string]interface{}
		require.NoError(stub.t, json.Unmarshal(raw, &envelope))
		stub.requests = append(stub.requests, envelope)
		action, _ := envelope["action"].(string)
		io.WriteString(w, stub.reply(action))
	}))
	t.Cleanup(srv.Close)
	return stub, srv
}

func (s *storeStub) reply(action string) string {
	if body, ok := s.replies[action]; ok {
		return body
	}
	return `{"success":true}`
}

func (s *storeStub) last() map[string]interface{} {
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func TestSubmit_SendsActionEnvelope(t *testing.T) {
	stub, srv := newStoreStub(t)
	client := NewClient(srv.URL)

	err := client.Submit(context.Background(), &SubmitRequest{
		FormTitle: "Nutrition Survey",
		FormID:    "form1",
		Fields:    append(SystemFieldDefs, FieldDef{Label: "Child Name", Name: "child_name"}),
		Data:      models.Record{"_id": "r1", "child_name": "Aminata"},
	})
	require.NoError(t, err)

	env := stub.last()
	assert.Equal(t, constants.ActionSubmit, env["action"])
	assert.Equal(t, "Nutrition Survey", env["formTitle"])
	assert.Equal(t, true, env["syncSchema"])

	fields, ok := env["fields"].([]interface{})
	require.True(t, ok)
	first, _ := fields[0].(map[string]interface{})
	assert.Equal(t, constants.KeyRecordID, first["name"])

	// The relay rejects preflighted requests, so the body rides text/plain
	assert.Equal(t, "text/plain", stub.headers[0])
}

func TestSubmit_StoreRejectionIsAnError(t *testing.T) {
	stub, srv := newStoreStub(t)
	stub.replies[constants.ActionSubmit] = `{"success":false,"error":"Sheet is locked"}`
	client := NewClient(srv.URL)

	err := client.Submit(context.Background(), &SubmitRequest{FormTitle: "Nutrition Survey"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sheet is locked")
}

func TestGetData_DecodesRows(t *testing.T) {
	stub, srv := newStoreStub(t)
	stub.replies[constants.ActionGetData] = `{"success":true,"data":[{"_id":"r1","child_name":"Aminata"},{"_id":"r2","child_name":"Sorie"}]}`
	client := NewClient(srv.URL)

	rows, err := client.GetData(context.Background(), "Nutrition Survey", 100)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].ID())
	assert.Equal(t, "Sorie", rows[1]["child_name"])
}

func TestGetData_EmptyBodyMeansNoRows(t *testing.T) {
	stub, srv := newStoreStub(t)
	stub.replies[constants.ActionGetData] = ""
	client := NewClient(srv.URL)

	rows, err := client.GetData(context.Background(), "Nutrition Survey", 100)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCatalog_SaveAndLoadForms(t *testing.T) {
	stub, srv := newStoreStub(t)
	stub.replies[constants.ActionLoadForms] = `{"success":true,"forms":[{"id":"form1","title":"Nutrition Survey"}]}`
	client := NewClient(srv.URL)

	entry := &models.FormEntry{ID: "form1", Title: "Nutrition Survey"}
	require.NoError(t, client.SaveForm(context.Background(), "clinic@example.org", entry))

	env := stub.last()
	assert.Equal(t, constants.ActionSaveForm, env["action"])
	assert.Equal(t, "clinic@example.org", env["email"])
	formData, _ := env["formData"].(string)
	assert.Contains(t, formData, `"Nutrition Survey"`)

	forms, err := client.LoadForms(context.Background(), "clinic@example.org")
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "form1", forms[0].ID)
}

func TestCascadeData_RoundTrip(t *testing.T) {
	stub, srv := newStoreStub(t)
	stub.replies[constants.ActionGetCascadeData] = `{"success":true,"data":"H4sIcompressed","columns":["district","chiefdom"]}`
	client := NewClient(srv.URL)

	err := client.SaveCascadeData(context.Background(), "casc1", "H4sIcompressed", []string{"district", "chiefdom"})
	require.NoError(t, err)
	env := stub.last()
	assert.Equal(t, constants.ActionSaveCascadeData, env["action"])

	data, columns, err := client.GetCascadeData(context.Background(), "casc1")
	require.NoError(t, err)
	assert.Equal(t, "H4sIcompressed", data)
	assert.Equal(t, []string{"district", "chiefdom"}, columns)
}

func TestConfiguredAndPing(t *testing.T) {
	assert.False(t, NewClient("").Configured())
	assert.False(t, NewClient("").Ping(context.Background()))

	_, srv := newStoreStub(t)
	client := NewClient(srv.URL)
	assert.True(t, client.Configured())
	assert.True(t, client.Ping(context.Background()))
}
