package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"shipdesk/internal/service"
)

// SeedHandler handles seed data endpoints.
type SeedHandler struct {
	seedService service.SeedService
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(seedService service.SeedService) *SeedHandler {
	return &SeedHandler{seedService: seedService}
}

// SeedRequest asks for count generated rows (default 5, at most 100).
type SeedRequest struct {
	Count int `json:"count" validate:"gte=0"`
}

// SeedResponse represents the seed response.
type SeedResponse struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
}

// SeedClients godoc
// @Summary Seed demo clients
// @Tags seed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SeedRequest false "Row count"
// @Success 200 {object} SeedResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /seed/clients-basic [post]
func (h *SeedHandler) SeedClients(c echo.Context) error {
	return h.seed(c, h.seedService.SeedClients)
}

// SeedShipments godoc
// @Summary Seed demo shipments across the caller's clients
// @Tags seed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SeedRequest false "Row count"
// @Success 200 {object} SeedResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /seed/shipments-basic [post]
func (h *SeedHandler) SeedShipments(c echo.Context) error {
	return h.seed(c, h.seedService.SeedShipments)
}

func (h *SeedHandler) seed(c echo.Context, run func(ctx context.Context, actor service.Actor, count int) (int, error)) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req SeedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inserted, err := run(c.Request().Context(), actor, req.Count)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, SeedResponse{OK: true, Inserted: inserted})
}
