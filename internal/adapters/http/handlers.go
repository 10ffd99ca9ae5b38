package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hivekeeper/core/internal/application/services"
	"github.com/hivekeeper/core/internal/domain/entities"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
	"github.com/hivekeeper/core/internal/ports"
)

// httpStatusFor maps store errors to HTTP status codes. Unknown record IDs
// become 404, a store that has not finished loading becomes 503, and
// everything else is treated as a bad request.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrApiaryNotFound),
		errors.Is(err, entities.ErrHiveNotFound),
		errors.Is(err, entities.ErrInspectionNotFound),
		errors.Is(err, entities.ErrTaskNotFound),
		errors.Is(err, entities.ErrYieldNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrStoreNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// AuthHandler handles the local sign-in flow
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// SignIn handles local sign-in
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req ports.SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.SignIn(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Sign in failed", "error", err, "email", req.Email)
		return echo.NewHTTPError(http.StatusInternalServerError, "Sign in failed")
	}

	return c.JSON(http.StatusOK, response)
}

// SignOut clears the stored session
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.authService.SignOut(c.Request().Context()); err != nil {
		h.logger.Error("Sign out failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Sign out failed")
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Signed out successfully"})
}

// CurrentSession returns the stored session, if any
func (h *AuthHandler) CurrentSession(c echo.Context) error {
	session, err := h.authService.CurrentSession(c.Request().Context())
	if err != nil {
		if errors.Is(err, entities.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No active session")
		}
		h.logger.Error("Load session failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load session")
	}

	return c.JSON(http.StatusOK, session)
}

// VerifyPasscode checks the passcode used to unlock the journal
func (h *AuthHandler) VerifyPasscode(c echo.Context) error {
	var req VerifyPasscodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.VerifyPasscode(c.Request().Context(), req.Passcode); err != nil {
		if errors.Is(err, entities.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No active session")
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid passcode")
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Passcode verified"})
}

// RegistrationHandler handles the trial and registration endpoints
type RegistrationHandler struct {
	store  *services.StoreService
	logger *logger.Logger
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(store *services.StoreService, logger *logger.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		store:  store,
		logger: logger,
	}
}

// GetTrialStatus returns the remaining trial days and registration flag
func (h *RegistrationHandler) GetTrialStatus(c echo.Context) error {
	response := TrialStatusResponse{IsRegistered: h.store.IsRegistered()}
	if remaining, ok := h.store.RemainingTrialDays(); ok {
		response.RemainingTrialDays = &remaining
	}

	return c.JSON(http.StatusOK, response)
}

// Register marks the journal as registered
func (h *RegistrationHandler) Register(c echo.Context) error {
	if err := h.store.Register(c.Request().Context()); err != nil {
		h.logger.Error("Registration failed", "error", err)
		return echo.NewHTTPError(httpStatusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Registered successfully"})
}

// Request/Response types
type VerifyPasscodeRequest struct {
	Passcode string `json:"passcode" validate:"required,min=4,max=72"`
}

type TrialStatusResponse struct {
	RemainingTrialDays *int `json:"remaining_trial_days"`
	IsRegistered       bool `json:"is_registered"`
}
