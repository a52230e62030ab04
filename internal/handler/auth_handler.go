package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shipdesk/internal/model"
	"shipdesk/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the access token and its user.
type LoginResponse struct {
	AccessToken string      `json:"accessToken"`
	User        *model.User `json:"user"`
}

// TokenResponse carries a refreshed access token.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Register godoc
// @Summary Register a new user
// @Description Creates an unverified account and sends a verification link.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.authService.Register(c.Request().Context(), req.Name, req.Email, req.Password); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, MessageResponse{Message: "registered, check your email to verify the account"})
}

// Verify godoc
// @Summary Verify an email address
// @Tags auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/verify [get]
func (h *AuthHandler) Verify(c echo.Context) error {
	if err := h.authService.VerifyEmail(c.Request().Context(), c.QueryParam("token")); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accessToken, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, LoginResponse{AccessToken: accessToken, User: user})
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchanges the current, possibly expired, bearer token for a new one.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TokenResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/refresh [get]
func (h *AuthHandler) Refresh(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return unauthorized("missing bearer token")
	}

	accessToken, err := h.authService.Refresh(c.Request().Context(), token)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, TokenResponse{AccessToken: accessToken})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.Request().Context(), actor.UserID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, user)
}
