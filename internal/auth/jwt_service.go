package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"shipdesk/internal/model"
)

const (
	// DefaultAccessTokenExpiry is the duration for which access tokens are valid.
	DefaultAccessTokenExpiry = 15 * time.Minute
	// DefaultRefreshWindow bounds how long after issuance a token may still be refreshed.
	DefaultRefreshWindow = 7 * 24 * time.Hour
)

var (
	errUnexpectedMethod = errors.New("unexpected signing method")
	errInvalidClaims    = errors.New("invalid token")
	errRefreshWindow    = errors.New("token is past its refresh window")
)

// Claims represents JWT claims.
type Claims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret        []byte
	accessTTL     time.Duration
	refreshWindow time.Duration
	now           func() time.Time
}

// NewJWTService creates a new JWT service with the given secret and lifetimes.
// Zero durations fall back to the defaults.
func NewJWTService(secret string, accessTTL, refreshWindow time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenExpiry
	}
	if refreshWindow <= 0 {
		refreshWindow = DefaultRefreshWindow
	}
	return &JWTService{
		secret:        []byte(secret),
		accessTTL:     accessTTL,
		refreshWindow: refreshWindow,
		now:           time.Now,
	}
}

// WithClock overrides the time source.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

// Secret returns the HMAC key, for the echo-jwt middleware.
func (s *JWTService) Secret() []byte {
	return s.secret
}

// RefreshWindow returns how long a token stays refreshable after issuance.
func (s *JWTService) RefreshWindow() time.Duration {
	return s.refreshWindow
}

// GenerateAccessToken issues a signed access token for the user. Every token
// carries a unique ID so it can be revoked once refreshed.
func (s *JWTService) GenerateAccessToken(user *model.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Roles:  user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ValidateToken validates signature and expiry and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, jwt.WithTimeFunc(s.now))
}

// ValidateForRefresh checks the signature but tolerates expiry, as long as
// the token was issued within the refresh window.
func (s *JWTService) ValidateForRefresh(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if claims.IssuedAt == nil || s.now().After(claims.IssuedAt.Add(s.refreshWindow)) {
		return nil, errRefreshWindow
	}
	if claims.ID == "" {
		return nil, errInvalidClaims
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedMethod
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errInvalidClaims
	}
	return claims, nil
}
