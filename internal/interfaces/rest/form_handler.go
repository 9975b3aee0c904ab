package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohamedsillahkanu/icf-collect/internal/application/services"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

type FormHandler struct {
	svcMgr *services.ServiceManager
}

func NewFormHandler(svcMgr *services.ServiceManager) *FormHandler {
	return &FormHandler{svcMgr: svcMgr}
}

// ListForms handles GET /api/forms
func (h *FormHandler) ListForms(c *gin.Context) {
	HandleGetEnvelope(c, "forms", func() (interface{}, error) {
		return h.svcMgr.Forms.List(c.Request.Context())
	})
}

// GetForm handles GET /api/forms/:id
func (h *FormHandler) GetForm(c *gin.Context) {
	id := c.Param(constants.FieldID)
	HandleGetEnvelope(c, "form", func() (interface{}, error) {
		return h.svcMgr.Forms.Get(c.Request.Context(), id)
	})
}

// SaveForm handles POST /api/forms
func (h *FormHandler) SaveForm(c *gin.Context) {
	var entry models.FormEntry
	HandleCreateEnvelope(c, "form", "Form saved successfully", &entry, func() error {
		saved, err := h.svcMgr.Forms.Save(c.Request.Context(), &entry)
		if err != nil {
			return err
		}
		entry = *saved
		return nil
	})
}

// DeleteForm handles DELETE /api/forms/:id
func (h *FormHandler) DeleteForm(c *gin.Context) {
	id := c.Param(constants.FieldID)
	HandleDeleteEnvelope(c, "Form deleted successfully", func() error {
		return h.svcMgr.Forms.Delete(c.Request.Context(), id)
	})
}

// SyncCatalog handles POST /api/forms/sync
func (h *FormHandler) SyncCatalog(c *gin.Context) {
	HandleGetEnvelope(c, "result", func() (interface{}, error) {
		return h.svcMgr.Forms.SyncCatalog(c.Request.Context())
	})
}

// SaveCascade handles POST /api/cascade/:id
func (h *FormHandler) SaveCascade(c *gin.Context) {
	id := c.Param(constants.FieldID)
	var body struct {
		Data    string   `json:"data"`
		Columns []string `json:"columns"`
	}
	if !BindJSON(c, &body) {
		return
	}
	if err := h.svcMgr.Forms.SaveCascade(c.Request.Context(), id, body.Data, body.Columns); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.FieldMessage: "Cascade data saved successfully"})
}

// GetCascade handles GET /api/cascade/:id
func (h *FormHandler) GetCascade(c *gin.Context) {
	id := c.Param(constants.FieldID)
	data, columns, err := h.svcMgr.Forms.GetCascade(c.Request.Context(), id)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "columns": columns})
}
