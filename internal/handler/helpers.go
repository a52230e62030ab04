package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"shipdesk/internal/auth"
	apperrors "shipdesk/internal/errors"
	"shipdesk/internal/model"
	"shipdesk/internal/service"
)

// ContextKeyUser is where the JWT middleware stores the parsed token.
const ContextKeyUser = "user"

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// fail converts a service error into an echo error with an {error, code} body.
func fail(err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	he := echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	if httpErr.StatusCode >= http.StatusInternalServerError {
		he = he.SetInternal(err)
	}
	return he
}

func badRequest(message, code string) error {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{Error: message, Code: code})
}

func unauthorized(message string) error {
	return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{Error: message, Code: "UNAUTHORIZED"})
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body", "INVALID_BODY")
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return badRequest(validationMessage(verrs[0]), "VALIDATION_ERROR")
		}
		return badRequest(err.Error(), "VALIDATION_ERROR")
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "gt":
		return field + " must be greater than " + fe.Param()
	default:
		return field + " is invalid"
	}
}

// actorFrom extracts the acting user from the JWT middleware's token.
func actorFrom(c echo.Context) (service.Actor, error) {
	token, ok := c.Get(ContextKeyUser).(*jwt.Token)
	if !ok {
		return service.Actor{}, unauthorized("missing token")
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return service.Actor{}, unauthorized("invalid token claims")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return service.Actor{}, unauthorized("invalid token subject")
	}
	return service.Actor{UserID: userID, Roles: claims.Roles}, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid "+name, "INVALID_ID")
	}
	return id, nil
}

// pageFrom reads page and pageSize query parameters. Bad values fall back to defaults.
func pageFrom(c echo.Context) model.PageRequest {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("pageSize"))
	return model.PageRequest{Page: page, PageSize: size}.Normalize()
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
