package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/boardsync/internal/models"
)

func (h *handlerImpl) HandleGetColumns(c *gin.Context) {
	columns, err := h.columns.GetColumns(c, c.Param("id"))
	if err != nil {
		abortServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

type saveColumnsRequest struct {
	Columns []models.ColumnConfig `json:"columns" binding:"required"`
}

func (h *handlerImpl) HandleSaveColumns(c *gin.Context) {
	var req saveColumnsRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	err = h.columns.SaveColumns(c, c.Param("id"), req.Columns)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"columns": req.Columns})
}

type moveColumnRequest struct {
	ColumnID    string `json:"column_id" binding:"required"`
	NewPosition *int   `json:"new_position" binding:"required"`
}

func (h *handlerImpl) HandleMoveColumn(c *gin.Context) {
	var req moveColumnRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newAPIError(http.StatusBadRequest, "invalid request body"))
		return
	}

	err = h.columns.MoveColumn(c, c.Param("id"), req.ColumnID, *req.NewPosition)
	if err != nil {
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

func (h *handlerImpl) HandleDeleteColumn(c *gin.Context) {
	err := h.columns.DeleteColumn(c, c.Param("id"), c.Param("columnID"))
	if err != nil {
		abortServiceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
