package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// requireReady rejects journal requests until the record store has finished
// loading its state from storage.
func (s *Server) requireReady() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !s.store.Ready() {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Journal is still loading")
			}
			return next(c)
		}
	}
}
