package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"shipdesk/internal/auth"
	apperrors "shipdesk/internal/errors"
	"shipdesk/internal/handler"
	"shipdesk/internal/observability"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth     *handler.AuthHandler
	Client   *handler.ClientHandler
	Shipment *handler.ShipmentHandler
	Seed     *handler.SeedHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, jwtSecret []byte, logger *zap.Logger, metrics *observability.Metrics, h Handlers) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(observability.RequestLogger(logger))
	e.Use(observability.TracingMiddleware("shipdesk-api"))
	if metrics != nil {
		e.Use(metrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public routes. Refresh validates its own, possibly expired, bearer token.
	e.POST("/auth/register", h.Auth.Register)
	e.POST("/auth/login", h.Auth.Login)
	e.GET("/auth/verify", h.Auth.Verify)
	e.GET("/auth/refresh", h.Auth.Refresh)

	// Secured routes (require JWT authentication)
	secured := e.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:    jwtSecret,
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    handler.ContextKeyUser,
		TokenLookup:   "header:" + echo.HeaderAuthorization + ":Bearer ",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: "invalid or expired token",
				Code:  "UNAUTHORIZED",
			}).SetInternal(err)
		},
	}))

	secured.GET("/auth/me", h.Auth.Me)

	secured.GET("/clients", h.Client.List)
	secured.POST("/clients", h.Client.Create)
	secured.GET("/clients/:id", h.Client.Get)
	secured.PUT("/clients/:id", h.Client.Update)
	secured.DELETE("/clients/:id", h.Client.Delete)

	secured.GET("/shipments", h.Shipment.List)
	secured.POST("/shipments", h.Shipment.Create)
	secured.GET("/shipments/:id", h.Shipment.Get)
	secured.PUT("/shipments/:id", h.Shipment.Update)
	secured.PATCH("/shipments/:id/status", h.Shipment.UpdateStatus)
	secured.GET("/history", h.Shipment.History)

	secured.POST("/seed/clients-basic", h.Seed.SeedClients)
	secured.POST("/seed/shipments-basic", h.Seed.SeedShipments)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
