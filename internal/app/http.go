package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/boardsync/internal/config"
	v1 "github.com/medtrack/boardsync/internal/delivery/http/v1"
	"github.com/medtrack/boardsync/internal/services"
	"github.com/medtrack/boardsync/internal/storage/postgres"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	taskStore := postgres.NewTaskStore(globalLogger, globalPostgresPool)
	columnStore := postgres.NewColumnStore(globalLogger, globalPostgresPool)

	taskService := services.NewTaskService(globalLogger, taskStore, columnStore)
	columnService := services.NewColumnService(globalLogger, columnStore, taskStore, taskService)
	pollerService := services.NewPollerService(globalLogger, taskStore)

	v1Handler := v1.New(globalLogger, taskService, columnService, pollerService)
	router = router.Group("/api/v1")

	router.GET("/health", v1Handler.HandleHealth)

	tasksRouter := router.Group("/tasks")
	tasksRouter.POST("", v1Handler.HandleCreateTask)
	tasksRouter.PUT("/:id", v1Handler.HandleUpdateTask)
	tasksRouter.PATCH("/:id/status", v1Handler.HandleSetTaskStatus)
	tasksRouter.PATCH("/:id/reorder", v1Handler.HandleReorderTask)
	tasksRouter.DELETE("/:id", v1Handler.HandleDeleteTask)

	programsRouter := router.Group("/programs")
	programsRouter.GET("/:id/tasks", v1Handler.HandleGetProgramTasks)
	programsRouter.GET("/:id/tasks/versions", v1Handler.HandleGetTaskVersions)
	programsRouter.GET("/:id/kanban-config", v1Handler.HandleGetColumns)
	programsRouter.PUT("/:id/kanban-config", v1Handler.HandleSaveColumns)
	programsRouter.PATCH("/:id/kanban-config/move", v1Handler.HandleMoveColumn)
	programsRouter.DELETE("/:id/kanban-config/columns/:columnID", v1Handler.HandleDeleteColumn)
}
