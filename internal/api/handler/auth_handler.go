package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/educationerp/erp-auth/internal/api/metrics"
	"github.com/educationerp/erp-auth/internal/api/middleware"
	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	now         func() time.Time
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService, now: time.Now}
}

// Login authenticates a user and returns an access and a refresh token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest   true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Identifier: req.Username,
		Secret:     req.Password,
		TenantID:   req.TenantID,
	})
	metrics.LoginAttemptsTotal.WithLabelValues(loginOutcome(err)).Inc()
	if err != nil {
		return err
	}

	countIssued(true)
	return c.JSON(http.StatusOK, toTokenResponse(res, h.now()))
}

// Register creates a self-service account and logs it in.
//
// @Summary      Register a new account
// @Description  Only STUDENT and PARENT accounts can register themselves.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Identifier: req.Username,
		Secret:     req.Password,
		Role:       domain.Role(req.Role),
		TenantID:   req.TenantID,
	})
	if err != nil {
		return err
	}

	countIssued(true)
	return c.JSON(http.StatusCreated, toTokenResponse(res, h.now()))
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token is returned unchanged.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	countIssued(false)
	return c.JSON(http.StatusOK, toTokenResponse(res, h.now()))
}

// Logout ends the session of the presented access token.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, ok := middleware.BearerToken(c.Request())
	if !ok {
		return fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}
	if err := h.authService.Logout(c.Request().Context(), raw); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// Validate reports whether the presented bearer token is currently valid.
//
// @Summary      Validate a token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  validateResponse
// @Router       /api/auth/validate [get]
// @Router       /api/auth/validate [post]
func (h *AuthHandler) Validate(c echo.Context) error {
	raw, ok := middleware.BearerToken(c.Request())
	if !ok {
		return c.JSON(http.StatusOK, validateResponse{Valid: false})
	}
	return c.JSON(http.StatusOK, validateResponse{Valid: h.authService.Validate(c.Request().Context(), raw)})
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrAccountLocked):
		return "locked"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "invalid_credentials"
	}
}

func countIssued(withRefresh bool) {
	metrics.TokensIssuedTotal.WithLabelValues(string(domain.TokenKindAccess)).Inc()
	if withRefresh {
		metrics.TokensIssuedTotal.WithLabelValues(string(domain.TokenKindRefresh)).Inc()
	}
}
