package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/medtrack/boardsync/internal/services"
)

type Handler interface {
	HandleCreateTask(c *gin.Context)
	HandleGetProgramTasks(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleSetTaskStatus(c *gin.Context)
	HandleReorderTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)

	HandleGetColumns(c *gin.Context)
	HandleSaveColumns(c *gin.Context)
	HandleMoveColumn(c *gin.Context)
	HandleDeleteColumn(c *gin.Context)

	HandleGetTaskVersions(c *gin.Context)
	HandleHealth(c *gin.Context)
}

type handlerImpl struct {
	logger  zerolog.Logger
	tasks   services.TaskService
	columns services.ColumnService
	poller  services.PollerService
}

func New(
	logger zerolog.Logger,
	taskService services.TaskService,
	columnService services.ColumnService,
	pollerService services.PollerService,
) Handler {
	return &handlerImpl{
		logger:  logger,
		tasks:   taskService,
		columns: columnService,
		poller:  pollerService,
	}
}

func (h *handlerImpl) HandleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
