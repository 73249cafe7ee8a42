package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/medtrack/boardsync/internal/services"
	"github.com/medtrack/boardsync/internal/storage/memory"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()
	store := memory.New()

	taskService := services.NewTaskService(logger, store, store)
	columnService := services.NewColumnService(logger, store, store, taskService)
	pollerService := services.NewPollerService(logger, store)
	handler := New(logger, taskService, columnService, pollerService)

	router := gin.New()
	api := router.Group("/api/v1")
	api.GET("/health", handler.HandleHealth)
	api.POST("/tasks", handler.HandleCreateTask)
	api.PUT("/tasks/:id", handler.HandleUpdateTask)
	api.PATCH("/tasks/:id/status", handler.HandleSetTaskStatus)
	api.PATCH("/tasks/:id/reorder", handler.HandleReorderTask)
	api.DELETE("/tasks/:id", handler.HandleDeleteTask)
	api.GET("/programs/:id/tasks", handler.HandleGetProgramTasks)
	api.GET("/programs/:id/tasks/versions", handler.HandleGetTaskVersions)
	api.GET("/programs/:id/kanban-config", handler.HandleGetColumns)
	api.PUT("/programs/:id/kanban-config", handler.HandleSaveColumns)
	api.PATCH("/programs/:id/kanban-config/move", handler.HandleMoveColumn)
	api.DELETE("/programs/:id/kanban-config/columns/:columnID", handler.HandleDeleteColumn)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(recorder.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", recorder.Body.String(), err)
	}
}

func createTask(t *testing.T, router *gin.Engine, programID, name string) taskResponse {
	t.Helper()

	recorder := doJSON(t, router, http.MethodPost, "/api/v1/tasks", gin.H{
		"program_id": programID,
		"name":       name,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create task: status %d, body %s", recorder.Code, recorder.Body.String())
	}

	var task taskResponse
	decodeJSON(t, recorder, &task)
	return task
}

func TestHealth(t *testing.T) {
	router := newTestRouter()

	recorder := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
}

func TestCreateAndListTasks(t *testing.T) {
	router := newTestRouter()

	created := createTask(t, router, "p1", "first")
	if created.Version != 1 || created.OrderIndex != 0 || created.Status != "todo" {
		t.Fatalf("created = %+v, want version 1 at head of todo", created)
	}
	createTask(t, router, "p1", "second")

	recorder := doJSON(t, router, http.MethodGet, "/api/v1/programs/p1/tasks", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var tasks []taskResponse
	decodeJSON(t, recorder, &tasks)
	if len(tasks) != 2 {
		t.Fatalf("listed %d tasks, want 2", len(tasks))
	}
}

func TestCreateTaskValidation(t *testing.T) {
	router := newTestRouter()

	// Missing required name.
	recorder := doJSON(t, router, http.MethodPost, "/api/v1/tasks", gin.H{"program_id": "p1"})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", recorder.Code)
	}

	// Status outside the configured columns.
	recorder = doJSON(t, router, http.MethodPost, "/api/v1/tasks", gin.H{
		"program_id": "p1",
		"name":       "x",
		"status":     "not_a_column",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("unknown status: status = %d, want 400", recorder.Code)
	}
}

func TestUpdateTaskStaleVersionConflicts(t *testing.T) {
	router := newTestRouter()
	task := createTask(t, router, "p1", "contested")

	// First update wins and bumps the version.
	recorder := doJSON(t, router, http.MethodPut, "/api/v1/tasks/"+task.ID, gin.H{
		"name":             "renamed",
		"expected_version": 1,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("first update: status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	// Second writer still holds version 1.
	recorder = doJSON(t, router, http.MethodPut, "/api/v1/tasks/"+task.ID, gin.H{
		"name":             "stale rename",
		"expected_version": 1,
	})
	if recorder.Code != http.StatusConflict {
		t.Fatalf("stale update: status = %d, want 409", recorder.Code)
	}

	var body struct {
		Conflict struct {
			ServerTask    taskResponse    `json:"server_task"`
			ClientAttempt json.RawMessage `json:"client_attempt"`
		} `json:"conflict"`
	}
	decodeJSON(t, recorder, &body)
	if body.Conflict.ServerTask.Version != 2 {
		t.Errorf("server_task.version = %d, want 2", body.Conflict.ServerTask.Version)
	}
	if body.Conflict.ServerTask.Name != "renamed" {
		t.Errorf("server_task.name = %q, want the winning write", body.Conflict.ServerTask.Name)
	}
	if len(body.Conflict.ClientAttempt) == 0 {
		t.Error("client_attempt missing from conflict payload")
	}
}

func TestUpdateUnknownTask(t *testing.T) {
	router := newTestRouter()

	recorder := doJSON(t, router, http.MethodPut, "/api/v1/tasks/ghost", gin.H{"name": "x"})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
}

func TestSetTaskStatus(t *testing.T) {
	router := newTestRouter()
	task := createTask(t, router, "p1", "mover")

	recorder := doJSON(t, router, http.MethodPatch, "/api/v1/tasks/"+task.ID+"/status", gin.H{
		"status": "done",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	var updated taskResponse
	decodeJSON(t, recorder, &updated)
	if updated.Status != "done" || updated.Version != 2 {
		t.Errorf("task = %+v, want status done at version 2", updated)
	}
}

func TestReorderTask(t *testing.T) {
	router := newTestRouter()
	createTask(t, router, "p1", "a")
	createTask(t, router, "p1", "b")
	moved := createTask(t, router, "p1", "c")

	recorder := doJSON(t, router, http.MethodPatch, "/api/v1/tasks/"+moved.ID+"/reorder", gin.H{
		"new_index": 0,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	var updated taskResponse
	decodeJSON(t, recorder, &updated)
	if updated.OrderIndex != 0 || updated.Version != 2 {
		t.Errorf("task = %+v, want order_index 0 at version 2", updated)
	}

	// Omitting new_index entirely fails binding.
	recorder = doJSON(t, router, http.MethodPatch, "/api/v1/tasks/"+moved.ID+"/reorder", gin.H{})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("missing new_index: status = %d, want 400", recorder.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	router := newTestRouter()
	task := createTask(t, router, "p1", "doomed")

	recorder := doJSON(t, router, http.MethodDelete, "/api/v1/tasks/"+task.ID, nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", recorder.Code)
	}

	recorder = doJSON(t, router, http.MethodDelete, "/api/v1/tasks/"+task.ID, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("second delete: status = %d, want 404", recorder.Code)
	}
}

func TestSaveColumnsRejectsBadCount(t *testing.T) {
	router := newTestRouter()

	recorder := doJSON(t, router, http.MethodPut, "/api/v1/programs/p1/kanban-config", gin.H{
		"columns": []gin.H{
			{"id": "a", "title": "A"},
			{"id": "b", "title": "B"},
		},
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestColumnLifecycle(t *testing.T) {
	router := newTestRouter()

	columns := make([]gin.H, 4)
	for i := range columns {
		columns[i] = gin.H{"id": fmt.Sprintf("col%d", i), "title": fmt.Sprintf("Column %d", i)}
	}
	recorder := doJSON(t, router, http.MethodPut, "/api/v1/programs/p1/kanban-config", gin.H{
		"columns": columns,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("save: status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, router, http.MethodPatch, "/api/v1/programs/p1/kanban-config/move", gin.H{
		"column_id":    "col3",
		"new_position": 0,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("move: status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, router, http.MethodDelete, "/api/v1/programs/p1/kanban-config/columns/col0", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete column: status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, router, http.MethodGet, "/api/v1/programs/p1/kanban-config", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("get: status = %d", recorder.Code)
	}
	var body struct {
		Columns []struct {
			ID string `json:"id"`
		} `json:"columns"`
	}
	decodeJSON(t, recorder, &body)
	want := []string{"col3", "col1", "col2"}
	if len(body.Columns) != len(want) {
		t.Fatalf("columns = %+v, want %v", body.Columns, want)
	}
	for i := range want {
		if body.Columns[i].ID != want[i] {
			t.Fatalf("columns[%d] = %q, want %q", i, body.Columns[i].ID, want[i])
		}
	}

	// Deleting below the floor is rejected.
	recorder = doJSON(t, router, http.MethodDelete, "/api/v1/programs/p1/kanban-config/columns/col1", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("floor delete: status = %d, want 400", recorder.Code)
	}
}

func TestTaskVersionsEndpoint(t *testing.T) {
	router := newTestRouter()

	recorder := doJSON(t, router, http.MethodGet, "/api/v1/programs/p1/tasks/versions", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if recorder.Body.String() != "{}" {
		t.Errorf("empty board body = %q, want {}", recorder.Body.String())
	}

	task := createTask(t, router, "p1", "tracked")

	recorder = doJSON(t, router, http.MethodGet, "/api/v1/programs/p1/tasks/versions", nil)
	var snapshot map[string]int64
	decodeJSON(t, recorder, &snapshot)
	if snapshot[task.ID] != 1 {
		t.Errorf("snapshot = %v, want {%s:1}", snapshot, task.ID)
	}
}
