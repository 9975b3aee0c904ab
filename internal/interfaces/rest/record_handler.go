package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mohamedsillahkanu/icf-collect/internal/application/services"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

type RecordHandler struct {
	svcMgr *services.ServiceManager
}

func NewRecordHandler(svcMgr *services.ServiceManager) *RecordHandler {
	return &RecordHandler{svcMgr: svcMgr}
}

// SubmitRecord handles POST /api/forms/:id/records
func (h *RecordHandler) SubmitRecord(c *gin.Context) {
	form, ok := h.loadForm(c)
	if !ok {
		return
	}

	var record models.Record
	if !BindJSON(c, &record) {
		return
	}

	saved, err := h.svcMgr.Records.Submit(c.Request.Context(), form, record)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		constants.FieldMessage: "Record submitted successfully",
		"record":               saved,
	})
}

// ListRecords handles GET /api/forms/:id/records.
// Optional query params: start and end (RFC 3339) bound the capture time;
// any other param filters on field equality.
func (h *RecordHandler) ListRecords(c *gin.Context) {
	formID := c.Param(constants.FieldID)
	filter, err := filterFromQuery(c)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	HandleGetEnvelope(c, "records", func() (interface{}, error) {
		return h.svcMgr.Records.List(c.Request.Context(), formID, filter)
	})
}

// AggregateRecords handles GET /api/forms/:id/records/aggregate
func (h *RecordHandler) AggregateRecords(c *gin.Context) {
	form, ok := h.loadForm(c)
	if !ok {
		return
	}
	filter, err := filterFromQuery(c)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	HandleGetEnvelope(c, "rows", func() (interface{}, error) {
		return h.svcMgr.Records.AggregateView(c.Request.Context(), form, filter)
	})
}

// CountRecords handles GET /api/forms/:id/records/counts
func (h *RecordHandler) CountRecords(c *gin.Context) {
	formID := c.Param(constants.FieldID)
	total, synced, err := h.svcMgr.Records.Counts(c.Request.Context(), formID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"synced":   synced,
		"unsynced": total - synced,
	})
}

// PullRemote handles GET /api/forms/:id/records/remote
func (h *RecordHandler) PullRemote(c *gin.Context) {
	form, ok := h.loadForm(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	HandleGetEnvelope(c, "records", func() (interface{}, error) {
		return h.svcMgr.Records.PullRemote(c.Request.Context(), form, limit)
	})
}

// FlushOutbox handles POST /api/outbox/flush
func (h *RecordHandler) FlushOutbox(c *gin.Context) {
	delivered, err := h.svcMgr.Outbox.Flush(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

// OutboxStatus handles GET /api/outbox
func (h *RecordHandler) OutboxStatus(c *gin.Context) {
	pending, err := h.svcMgr.Outbox.PendingCount(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

func (h *RecordHandler) loadForm(c *gin.Context) (*models.FormEntry, bool) {
	form, err := h.svcMgr.Forms.Get(c.Request.Context(), c.Param(constants.FieldID))
	if err != nil {
		RespondAppError(c, err)
		return nil, false
	}
	return form, true
}

func filterFromQuery(c *gin.Context) (*models.RecordFilter, error) {
	filter := &models.RecordFilter{Fields: map[string]string{}}
	used := false

	for key, values := range c.Request.URL.Query() {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		value := values[0]
		switch key {
		case "start":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, err
			}
			filter.Start = &t
			used = true
		case "end":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, err
			}
			filter.End = &t
			used = true
		case "limit":
		default:
			filter.Fields[key] = value
			used = true
		}
	}
	if !used {
		return nil, nil
	}
	return filter, nil
}
