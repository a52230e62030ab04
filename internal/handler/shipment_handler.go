package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"shipdesk/internal/model"
	"shipdesk/internal/repository"
	"shipdesk/internal/service"
)

// ShipmentHandler handles shipment and status workflow endpoints.
type ShipmentHandler struct {
	shipmentService service.ShipmentService
}

// NewShipmentHandler creates a new shipment handler.
func NewShipmentHandler(shipmentService service.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{shipmentService: shipmentService}
}

// CreateShipmentRequest represents a new shipment.
type CreateShipmentRequest struct {
	ClientID    uuid.UUID            `json:"clientId" validate:"required"`
	Code        string               `json:"code" validate:"required,max=64"`
	Origin      string               `json:"origin" validate:"required,max=255"`
	Destination string               `json:"destination" validate:"required,max=255"`
	WeightKg    float64              `json:"weightKg" validate:"gt=0"`
	Status      model.ShipmentStatus `json:"status,omitempty"`
	ETA         *time.Time           `json:"eta,omitempty"`
}

// UpdateShipmentRequest carries the editable shipment fields. Status changes go through PATCH /shipments/{id}/status.
type UpdateShipmentRequest struct {
	Code        string     `json:"code" validate:"required,max=64"`
	Origin      string     `json:"origin" validate:"required,max=255"`
	Destination string     `json:"destination" validate:"required,max=255"`
	WeightKg    float64    `json:"weightKg" validate:"gt=0"`
	ETA         *time.Time `json:"eta,omitempty"`
}

// UpdateStatusRequest represents a status change.
type UpdateStatusRequest struct {
	NewStatus model.ShipmentStatus `json:"newStatus" validate:"required"`
	Note      string               `json:"note,omitempty" validate:"max=1000"`
}

// List godoc
// @Summary List shipments
// @Tags shipments
// @Produce json
// @Security BearerAuth
// @Param clientId query string false "Client ID"
// @Param status query string false "Status" Enums(created, in_transit, delivered, canceled)
// @Param search query string false "Code, origin or destination substring"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(10)
// @Success 200 {object} model.Page[model.Shipment]
// @Failure 400 {object} errors.ErrorResponse
// @Router /shipments [get]
func (h *ShipmentHandler) List(c echo.Context) error {
	filter := repository.ShipmentFilter{
		Status: model.ShipmentStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
	}
	if raw := c.QueryParam("clientId"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			return badRequest("invalid clientId", "INVALID_ID")
		}
		filter.ClientID = &clientID
	}

	page, err := h.shipmentService.List(c.Request().Context(), filter, pageFrom(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get godoc
// @Summary Get a shipment
// @Tags shipments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shipment ID"
// @Success 200 {object} model.Shipment
// @Failure 404 {object} errors.ErrorResponse
// @Router /shipments/{id} [get]
func (h *ShipmentHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	shipment, err := h.shipmentService.Get(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, shipment)
}

// Create godoc
// @Summary Create a shipment
// @Tags shipments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateShipmentRequest true "Shipment"
// @Success 201 {object} model.Shipment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /shipments [post]
func (h *ShipmentHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req CreateShipmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	shipment, err := h.shipmentService.Create(c.Request().Context(), actor, service.ShipmentInput{
		ClientID:    req.ClientID,
		Code:        req.Code,
		Origin:      req.Origin,
		Destination: req.Destination,
		WeightKg:    req.WeightKg,
		Status:      req.Status,
		ETA:         req.ETA,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, shipment)
}

// Update godoc
// @Summary Update a shipment
// @Tags shipments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shipment ID"
// @Param request body UpdateShipmentRequest true "Shipment"
// @Success 200 {object} model.Shipment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /shipments/{id} [put]
func (h *ShipmentHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateShipmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	shipment, err := h.shipmentService.Update(c.Request().Context(), id, service.ShipmentInput{
		Code:        req.Code,
		Origin:      req.Origin,
		Destination: req.Destination,
		WeightKg:    req.WeightKg,
		ETA:         req.ETA,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, shipment)
}

// UpdateStatus godoc
// @Summary Change a shipment's status
// @Description Writes the new status and appends one history record. Any status may follow any other.
// @Tags shipments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shipment ID"
// @Param request body UpdateStatusRequest true "Status change"
// @Success 200 {object} model.Shipment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /shipments/{id}/status [patch]
func (h *ShipmentHandler) UpdateStatus(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	shipment, err := h.shipmentService.UpdateStatus(c.Request().Context(), actor, id, req.NewStatus, req.Note)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, shipment)
}

// History godoc
// @Summary Status history of a shipment
// @Description Most recent change first.
// @Tags history
// @Produce json
// @Security BearerAuth
// @Param shipmentId query string true "Shipment ID"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(10)
// @Success 200 {object} model.Page[model.ShipmentHistory]
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /history [get]
func (h *ShipmentHandler) History(c echo.Context) error {
	raw := c.QueryParam("shipmentId")
	if raw == "" {
		return badRequest("shipmentId is required", "VALIDATION_ERROR")
	}
	shipmentID, err := uuid.Parse(raw)
	if err != nil {
		return badRequest("invalid shipmentId", "INVALID_ID")
	}

	page, err := h.shipmentService.History(c.Request().Context(), shipmentID, pageFrom(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, page)
}
