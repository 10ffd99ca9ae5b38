package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hivekeeper/core/internal/application/services"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
	"github.com/hivekeeper/core/internal/ports"
)

// InspectionHandler handles inspection-related requests
type InspectionHandler struct {
	store  *services.StoreService
	logger *logger.Logger
}

// NewInspectionHandler creates a new inspection handler
func NewInspectionHandler(store *services.StoreService, logger *logger.Logger) *InspectionHandler {
	return &InspectionHandler{
		store:  store,
		logger: logger,
	}
}

// CreateInspection handles inspection creation
func (h *InspectionHandler) CreateInspection(c echo.Context) error {
	var req ports.CreateInspectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	inspection, err := h.store.AddInspection(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Create inspection failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusCreated, inspection)
}

// ListInspections returns all inspections
func (h *InspectionHandler) ListInspections(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Inspections())
}

// ListThisMonthInspections returns inspections of the current month for the
// current apiary
func (h *InspectionHandler) ListThisMonthInspections(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.ThisMonthInspections())
}

// UpdateInspection handles inspection updates
func (h *InspectionHandler) UpdateInspection(c echo.Context) error {
	id := c.Param("id")

	var req ports.UpdateInspectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	inspection, err := h.store.UpdateInspection(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Error("Update inspection failed", "error", err, "inspection_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, inspection)
}

// DeleteInspection removes an inspection
func (h *InspectionHandler) DeleteInspection(c echo.Context) error {
	id := c.Param("id")

	if err := h.store.DeleteInspection(c.Request().Context(), id); err != nil {
		h.logger.Error("Delete inspection failed", "error", err, "inspection_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Inspection deleted successfully"})
}

// TaskHandler handles task-related requests
type TaskHandler struct {
	store  *services.StoreService
	logger *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(store *services.StoreService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		store:  store,
		logger: logger,
	}
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.store.AddTask(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Create task failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusCreated, task)
}

// ListTasks returns all tasks
func (h *TaskHandler) ListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Tasks())
}

// ListPendingTasks returns incomplete tasks for the current apiary
func (h *TaskHandler) ListPendingTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.PendingTasks())
}

// UpdateTask handles task updates
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id := c.Param("id")

	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.store.UpdateTask(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Error("Update task failed", "error", err, "task_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id := c.Param("id")

	if err := h.store.DeleteTask(c.Request().Context(), id); err != nil {
		h.logger.Error("Delete task failed", "error", err, "task_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Task deleted successfully"})
}

// YieldHandler handles yield-related requests
type YieldHandler struct {
	store  *services.StoreService
	logger *logger.Logger
}

// NewYieldHandler creates a new yield handler
func NewYieldHandler(store *services.StoreService, logger *logger.Logger) *YieldHandler {
	return &YieldHandler{
		store:  store,
		logger: logger,
	}
}

// CreateYield handles yield creation
func (h *YieldHandler) CreateYield(c echo.Context) error {
	var req ports.CreateYieldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	yield, err := h.store.AddYield(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Create yield failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusCreated, yield)
}

// ListYields returns all yield records
func (h *YieldHandler) ListYields(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Yields())
}

// UpdateYield handles yield updates
func (h *YieldHandler) UpdateYield(c echo.Context) error {
	id := c.Param("id")

	var req ports.UpdateYieldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	yield, err := h.store.UpdateYield(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Error("Update yield failed", "error", err, "yield_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, yield)
}

// DeleteYield removes a yield record
func (h *YieldHandler) DeleteYield(c echo.Context) error {
	id := c.Param("id")

	if err := h.store.DeleteYield(c.Request().Context(), id); err != nil {
		h.logger.Error("Delete yield failed", "error", err, "yield_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Yield deleted successfully"})
}
