package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"shipdesk/internal/model"
	"shipdesk/internal/service"
)

// ClientHandler handles client endpoints.
type ClientHandler struct {
	clientService service.ClientService
}

// NewClientHandler creates a new client handler.
func NewClientHandler(clientService service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// ClientRequest carries every client field; PUT replaces all of them.
type ClientRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Email       string          `json:"email" validate:"required,email"`
	Phone       string          `json:"phone" validate:"max=64"`
	Addresses   []model.Address `json:"addresses" validate:"omitempty,dive"`
	OwnerUserID *uuid.UUID      `json:"ownerUserId,omitempty"`
}

func (r ClientRequest) input() service.ClientInput {
	return service.ClientInput{
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Addresses:   r.Addresses,
		OwnerUserID: r.OwnerUserID,
	}
}

// List godoc
// @Summary List clients
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or email substring"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(10)
// @Success 200 {object} model.Page[model.Client]
// @Failure 401 {object} errors.ErrorResponse
// @Router /clients [get]
func (h *ClientHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	page, err := h.clientService.List(c.Request().Context(), actor, c.QueryParam("search"), pageFrom(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get godoc
// @Summary Get a client
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Success 200 {object} model.Client
// @Failure 404 {object} errors.ErrorResponse
// @Router /clients/{id} [get]
func (h *ClientHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	client, err := h.clientService.Get(c.Request().Context(), actor, id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, client)
}

// Create godoc
// @Summary Create a client
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ClientRequest true "Client"
// @Success 201 {object} model.Client
// @Failure 400 {object} errors.ErrorResponse
// @Router /clients [post]
func (h *ClientHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req ClientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	client, err := h.clientService.Create(c.Request().Context(), actor, req.input())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, client)
}

// Update godoc
// @Summary Replace a client
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Param request body ClientRequest true "Client"
// @Success 200 {object} model.Client
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /clients/{id} [put]
func (h *ClientHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ClientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	client, err := h.clientService.Update(c.Request().Context(), actor, id, req.input())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, client)
}

// Delete godoc
// @Summary Delete a client
// @Tags clients
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /clients/{id} [delete]
func (h *ClientHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.clientService.Delete(c.Request().Context(), actor, id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}
