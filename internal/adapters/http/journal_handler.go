package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hivekeeper/core/internal/application/services"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
	"github.com/hivekeeper/core/internal/ports"
)

// ApiaryHandler handles apiary-related requests
type ApiaryHandler struct {
	store  *services.StoreService
	logger *logger.Logger
}

// NewApiaryHandler creates a new apiary handler
func NewApiaryHandler(store *services.StoreService, logger *logger.Logger) *ApiaryHandler {
	return &ApiaryHandler{
		store:  store,
		logger: logger,
	}
}

// CreateApiary handles apiary creation. The new apiary becomes the current
// selection.
func (h *ApiaryHandler) CreateApiary(c echo.Context) error {
	var req ports.CreateApiaryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	apiary, err := h.store.AddApiary(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Create apiary failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusCreated, apiary)
}

// ListApiaries returns all apiaries
func (h *ApiaryHandler) ListApiaries(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Apiaries())
}

// UpdateApiary handles apiary updates
func (h *ApiaryHandler) UpdateApiary(c echo.Context) error {
	id := c.Param("id")

	var req ports.UpdateApiaryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	apiary, err := h.store.UpdateApiary(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Error("Update apiary failed", "error", err, "apiary_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, apiary)
}

// DeleteApiary removes an apiary. Its hives stay in the journal without an
// apiary assignment.
func (h *ApiaryHandler) DeleteApiary(c echo.Context) error {
	id := c.Param("id")

	if err := h.store.DeleteApiary(c.Request().Context(), id); err != nil {
		h.logger.Error("Delete apiary failed", "error", err, "apiary_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Apiary deleted successfully"})
}

// GetCurrentApiary returns the currently selected apiary
func (h *ApiaryHandler) GetCurrentApiary(c echo.Context) error {
	apiary := h.store.CurrentApiary()
	if apiary == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No apiary selected")
	}

	return c.JSON(http.StatusOK, apiary)
}

// SetCurrentApiary switches the current apiary selection
func (h *ApiaryHandler) SetCurrentApiary(c echo.Context) error {
	id := c.Param("id")

	if err := h.store.SetCurrentApiary(c.Request().Context(), id); err != nil {
		h.logger.Error("Set current apiary failed", "error", err, "apiary_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Current apiary updated"})
}

// HiveHandler handles hive-related requests
type HiveHandler struct {
	store  *services.StoreService
	logger *logger.Logger
}

// NewHiveHandler creates a new hive handler
func NewHiveHandler(store *services.StoreService, logger *logger.Logger) *HiveHandler {
	return &HiveHandler{
		store:  store,
		logger: logger,
	}
}

// CreateHive handles hive creation
func (h *HiveHandler) CreateHive(c echo.Context) error {
	var req ports.CreateHiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	hive, err := h.store.AddHive(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Create hive failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusCreated, hive)
}

// ListHives returns all hives, including soft-deleted ones
func (h *HiveHandler) ListHives(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Hives())
}

// ListCurrentApiaryHives returns the active hives of the current apiary
func (h *HiveHandler) ListCurrentApiaryHives(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.CurrentApiaryHives())
}

// UpdateHive handles hive updates
func (h *HiveHandler) UpdateHive(c echo.Context) error {
	id := c.Param("id")

	var req ports.UpdateHiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	hive, err := h.store.UpdateHive(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Error("Update hive failed", "error", err, "hive_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, hive)
}

// GetHiveCountByYear returns how many of the current apiary's hives existed
// during the requested year
func (h *HiveHandler) GetHiveCountByYear(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid year")
	}

	return c.JSON(http.StatusOK, HiveCountResponse{
		Year:  year,
		Count: h.store.HiveCountByYear(year),
	})
}

// DeleteHive soft-deletes a hive and detaches it from its tasks
func (h *HiveHandler) DeleteHive(c echo.Context) error {
	id := c.Param("id")

	if err := h.store.DeleteHive(c.Request().Context(), id); err != nil {
		h.logger.Error("Delete hive failed", "error", err, "hive_id", id)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Hive deleted successfully"})
}

// HiveCountResponse reports the per-year hive count
type HiveCountResponse struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}
