package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shipdesk/internal/auth"
	apperrors "shipdesk/internal/errors"
	"shipdesk/internal/model"
	"shipdesk/internal/observability"
	"shipdesk/internal/repository"
)

const bcryptCost = 10

// AuthOptions tunes the registration flow.
type AuthOptions struct {
	VerifyTokenTTL time.Duration
	AppBaseURL     string
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (accessToken string, user *model.User, err error)
	Refresh(ctx context.Context, oldToken string) (accessToken string, err error)
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	mailer     Mailer
	opts       AuthOptions
	metrics    *observability.Metrics
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, mailer Mailer, opts AuthOptions, metrics *observability.Metrics) AuthService {
	if opts.VerifyTokenTTL <= 0 {
		opts.VerifyTokenTTL = 24 * time.Hour
	}
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		mailer:     mailer,
		opts:       opts,
		metrics:    metrics,
	}
}

// Register creates an unverified user and sends the verification link.
func (s *authService) Register(ctx context.Context, name, email, password string) (user *model.User, err error) {
	defer func() { s.metrics.RecordAuthEvent("register", err) }()

	email = normalizeEmail(email)
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user = &model.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hashed),
		Roles:        []string{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token := uuid.NewString()
	if err := s.tokenStore.StoreVerificationToken(ctx, token, user.ID, s.opts.VerifyTokenTTL); err != nil {
		return nil, fmt.Errorf("store verification token: %w", err)
	}
	if err := s.mailer.SendVerification(ctx, user, s.verifyLink(token)); err != nil {
		return nil, fmt.Errorf("send verification: %w", err)
	}
	return user, nil
}

// VerifyEmail consumes a verification token and marks its user verified.
func (s *authService) VerifyEmail(ctx context.Context, token string) (err error) {
	defer func() { s.metrics.RecordAuthEvent("verify", err) }()

	if token == "" {
		return apperrors.ErrInvalidVerificationToken
	}
	userID, err := s.tokenStore.ConsumeVerificationToken(ctx, token)
	if err != nil {
		return apperrors.ErrInvalidVerificationToken
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidVerificationToken
		}
		return fmt.Errorf("find user: %w", err)
	}
	if err := s.userRepo.MarkVerified(ctx, userID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// Login authenticates a verified user and returns an access token.
func (s *authService) Login(ctx context.Context, email, password string) (accessToken string, user *model.User, err error) {
	defer func() { s.metrics.RecordAuthEvent("login", err) }()

	user, err = s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}
	if !user.Verified {
		return "", nil, apperrors.ErrEmailNotVerified
	}

	accessToken, _, err = s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, user, nil
}

// Refresh exchanges a token issued within the refresh window for a new one.
// The old token's ID is revoked so it cannot be refreshed twice.
func (s *authService) Refresh(ctx context.Context, oldToken string) (accessToken string, err error) {
	defer func() { s.metrics.RecordAuthEvent("refresh", err) }()

	claims, err := s.jwtService.ValidateForRefresh(oldToken)
	if err != nil {
		return "", apperrors.ErrInvalidToken
	}
	revoked, err := s.tokenStore.IsTokenRevoked(ctx, claims.ID)
	if err != nil || revoked {
		return "", apperrors.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", apperrors.ErrInvalidToken
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", apperrors.ErrInvalidToken
	}

	accessToken, _, err = s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	ttl := time.Until(claims.IssuedAt.Add(s.jwtService.RefreshWindow()))
	if ttl > 0 {
		if err := s.tokenStore.RevokeToken(ctx, claims.ID, ttl); err != nil {
			return "", fmt.Errorf("revoke token: %w", err)
		}
	}
	return accessToken, nil
}

// Me returns the user a token was issued to.
func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *authService) verifyLink(token string) string {
	base := strings.TrimRight(s.opts.AppBaseURL, "/")
	return base + "/verify?token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
