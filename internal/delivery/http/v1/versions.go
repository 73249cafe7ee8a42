package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleGetTaskVersions serves the poller's snapshot endpoint: the
// {task id: version} map remote clients diff against their last known
// state. An empty board yields an empty object, not null.
func (h *handlerImpl) HandleGetTaskVersions(c *gin.Context) {
	changes, err := h.poller.Poll(c, c.Param("id"), nil)
	if err != nil {
		abortServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, changes.Snapshot)
}
