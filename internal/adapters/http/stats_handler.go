package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hivekeeper/core/internal/application/services"
	"github.com/hivekeeper/core/internal/domain/entities"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
)

// StatsHandler handles statistics snapshot requests
type StatsHandler struct {
	stats  *services.StatsService
	logger *logger.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(stats *services.StatsService, logger *logger.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logger,
	}
}

// GetMonthlyStats returns the stored monthly snapshot for the requested
// period, defaulting to the current month. When no snapshot is stored the
// stats are computed live.
func (h *StatsHandler) GetMonthlyStats(c echo.Context) error {
	now := time.Now()
	year, month, err := periodParams(c, now.Year(), int(now.Month()))
	if err != nil {
		return err
	}

	if stats, ok := h.stats.MonthlyStatsFor(year, month); ok {
		return c.JSON(http.StatusOK, stats)
	}
	return c.JSON(http.StatusOK, h.stats.CalculateMonthlyStats(year, month))
}

// GetYearlyStats returns the stored yearly snapshot for the requested year
func (h *StatsHandler) GetYearlyStats(c echo.Context) error {
	year, _, err := periodParams(c, time.Now().Year(), 0)
	if err != nil {
		return err
	}

	stats, ok := h.stats.YearlyStatsFor(year)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No yearly snapshot for that year")
	}
	return c.JSON(http.StatusOK, stats)
}

// UpdateMonthlyStats recomputes and stores the current month snapshot
func (h *StatsHandler) UpdateMonthlyStats(c echo.Context) error {
	stats, err := h.stats.UpdateMonthlyStats(c.Request().Context())
	if err != nil {
		h.logger.Error("Update monthly stats failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, stats)
}

// UpdateYearlyStats recomputes and stores the current year snapshot
func (h *StatsHandler) UpdateYearlyStats(c echo.Context) error {
	stats, err := h.stats.UpdateYearlyStats(c.Request().Context())
	if err != nil {
		h.logger.Error("Update yearly stats failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, stats)
}

// ResetMonthlyStats stores a zeroed snapshot for the current month
func (h *StatsHandler) ResetMonthlyStats(c echo.Context) error {
	if err := h.stats.ResetMonthlyStats(c.Request().Context()); err != nil {
		h.logger.Error("Reset monthly stats failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Monthly stats reset"})
}

// ResetYearlyStats stores a zeroed snapshot for the current year
func (h *StatsHandler) ResetYearlyStats(c echo.Context) error {
	if err := h.stats.ResetYearlyStats(c.Request().Context()); err != nil {
		h.logger.Error("Reset yearly stats failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Yearly stats reset"})
}

// GetHistory returns all stored monthly and yearly snapshots
func (h *StatsHandler) GetHistory(c echo.Context) error {
	monthly, yearly := h.stats.History()
	return c.JSON(http.StatusOK, StatsHistoryResponse{
		Monthly: monthly,
		Yearly:  yearly,
	})
}

// periodParams parses optional year and month query parameters.
func periodParams(c echo.Context, defaultYear, defaultMonth int) (int, int, error) {
	year, month := defaultYear, defaultMonth

	if yearStr := c.QueryParam("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil || parsed < 1 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid year parameter")
		}
		year = parsed
	}

	if monthStr := c.QueryParam("month"); monthStr != "" {
		parsed, err := strconv.Atoi(monthStr)
		if err != nil || parsed < 1 || parsed > 12 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid month parameter")
		}
		month = parsed
	}

	return year, month, nil
}

// DashboardHandler serves the aggregated home screen view
type DashboardHandler struct {
	store  *services.StoreService
	logger *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(store *services.StoreService, logger *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		store:  store,
		logger: logger,
	}
}

// GetDashboard returns the derived overview of the current apiary
func (h *DashboardHandler) GetDashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Dashboard())
}

// StatsHistoryResponse bundles every stored snapshot
type StatsHistoryResponse struct {
	Monthly []entities.MonthlyStats `json:"monthly"`
	Yearly  []entities.YearlyStats  `json:"yearly"`
}
