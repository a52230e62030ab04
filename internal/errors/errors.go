package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned when an unverified user tries to log in.
	ErrEmailNotVerified = errors.New("email address not verified")
	// ErrUserAlreadyExists is returned when trying to register an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidVerificationToken is returned for unknown or expired verification tokens.
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	// ErrInvalidToken is returned when an access token cannot be refreshed or trusted.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUserNotFound is returned when the token subject no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrClientNotFound is returned when a client is missing or not visible to the caller.
	ErrClientNotFound = errors.New("client not found")
	// ErrShipmentNotFound is returned when a shipment is not found.
	ErrShipmentNotFound = errors.New("shipment not found")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid shipment status")
	// ErrDuplicateCode is returned when a shipment code is already taken.
	ErrDuplicateCode = errors.New("shipment code already exists")
	// ErrNoClients is returned when seeding shipments without any client to attach them to.
	ErrNoClients = errors.New("no clients available to attach shipments to")
	// ErrInvalidWeight is returned for non-positive shipment weights.
	ErrInvalidWeight = errors.New("weight must be positive")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mapping = []struct {
	err    error
	status int
	code   string
}{
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrEmailNotVerified, http.StatusForbidden, "EMAIL_NOT_VERIFIED"},
	{ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
	{ErrInvalidVerificationToken, http.StatusBadRequest, "INVALID_VERIFICATION_TOKEN"},
	{ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
	{ErrUserNotFound, http.StatusUnauthorized, "USER_NOT_FOUND"},
	{ErrClientNotFound, http.StatusNotFound, "CLIENT_NOT_FOUND"},
	{ErrShipmentNotFound, http.StatusNotFound, "SHIPMENT_NOT_FOUND"},
	{ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
	{ErrDuplicateCode, http.StatusConflict, "DUPLICATE_CODE"},
	{ErrNoClients, http.StatusBadRequest, "NO_CLIENTS"},
	{ErrInvalidWeight, http.StatusBadRequest, "INVALID_WEIGHT"},
}

// MapErrorToHTTP maps domain errors (possibly wrapped) to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mapping {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
