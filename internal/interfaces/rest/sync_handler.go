package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohamedsillahkanu/icf-collect/internal/application/services"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	apperrors "github.com/mohamedsillahkanu/icf-collect/pkg/errors"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

type SyncHandler struct {
	svcMgr *services.ServiceManager
}

func NewSyncHandler(svcMgr *services.ServiceManager) *SyncHandler {
	return &SyncHandler{svcMgr: svcMgr}
}

// TestConnection handles POST /api/sync/test. The connection settings come
// from the body so a user can probe before saving them on a form.
func (h *SyncHandler) TestConnection(c *gin.Context) {
	var cfg models.RemoteConfig
	if !BindJSON(c, &cfg) {
		return
	}
	info, units, err := h.svcMgr.Sync.TestConnection(c.Request.Context(), &cfg)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"system":   info,
		"orgUnits": len(units),
	})
}

// FetchOrgUnits handles GET /api/forms/:id/orgunits
func (h *SyncHandler) FetchOrgUnits(c *gin.Context) {
	form, err := h.svcMgr.Forms.Get(c.Request.Context(), c.Param(constants.FieldID))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if form.Remote == nil {
		RespondAppError(c, apperrors.NewNotConfiguredError("remote connection"))
		return
	}
	HandleGetEnvelope(c, "orgUnits", func() (interface{}, error) {
		return h.svcMgr.Sync.FetchOrgUnits(c.Request.Context(), form.Remote)
	})
}

// RunSync handles POST /api/forms/:id/sync
func (h *SyncHandler) RunSync(c *gin.Context) {
	form, err := h.svcMgr.Forms.Get(c.Request.Context(), c.Param(constants.FieldID))
	if err != nil {
		RespondAppError(c, err)
		return
	}

	report, err := h.svcMgr.Sync.Sync(c.Request.Context(), form)
	if err != nil {
		if errors.Is(err, services.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				constants.ResponseError: err.Error(),
				constants.FieldMessage:  err.Error(),
			})
			return
		}
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
