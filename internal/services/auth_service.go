package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"invoiceflow/internal/caching"
	"invoiceflow/internal/common"
	"invoiceflow/internal/models"
	"invoiceflow/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "invoiceflow-auth"
	tokenAudience = "invoiceflow-api"

	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
)

// AuthService handles registration, login and JWT access tokens
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Me(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error)

	GenerateToken(userID, tenantID uuid.UUID) (*models.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	RevokeToken(ctx context.Context, claims *TokenClaims) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenClaims represents JWT claims
type TokenClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	TokenID  string `json:"token_id"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	CompanyName string
}

type authService struct {
	users     repositories.UserRepository
	tenants   repositories.TenantRepository
	cacheSvc  caching.CacheService
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(users repositories.UserRepository, tenants repositories.TenantRepository, cacheSvc caching.CacheService, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		users:     users,
		tenants:   tenants,
		cacheSvc:  cacheSvc,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Register creates the user, joining the tenant with the given company name or
// creating it when none exists.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.AuthResponse, error) {
	email := normalizeEmail(input.Email)

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrEmailTaken
	}

	tenant, err := s.tenants.FindOrCreate(ctx, strings.TrimSpace(input.CompanyName))
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Tenant:       tenant,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.GenerateToken(user.ID, tenant.ID)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "tenant_id", tenant.ID)
	return &models.AuthResponse{User: user, Token: token}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = normalizeEmail(email)

	limited, err := s.cacheSvc.IsRateLimited(ctx, "login:"+email, loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		slog.WarnContext(ctx, "login rate limit check failed", "error", err)
	} else if limited {
		return nil, common.ErrTooManyAttempts
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user.ID, user.TenantID)
	if err != nil {
		return nil, err
	}

	if tenant, err := s.tenants.GetByID(ctx, user.TenantID); err == nil {
		user.Tenant = tenant
	}

	return &models.AuthResponse{User: user, Token: token}, nil
}

func (s *authService) Me(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	user.Tenant = tenant

	return user, nil
}

// GenerateToken signs an HS256 access token for the user
func (s *authService) GenerateToken(userID, tenantID uuid.UUID) (*models.TokenResponse, error) {
	now := s.now()
	tokenID := uuid.NewString()

	claims := TokenClaims{
		UserID:   userID.String(),
		TenantID: tenantID.String(),
		TokenID:  tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %w", err)
	}

	return &models.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
		UserID:      userID.String(),
		TenantID:    tenantID.String(),
		TokenID:     tokenID,
		IssuedAt:    now,
	}, nil
}

// ValidateToken verifies signature, expiry and audience, then checks the blacklist
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(tokenAudience),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}

	revoked, err := s.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", common.ErrUnauthorized)
	}

	return claims, nil
}

// RevokeToken blacklists the token until it would have expired anyway
func (s *authService) RevokeToken(ctx context.Context, claims *TokenClaims) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	return s.cacheSvc.BlacklistToken(ctx, claims.TokenID, ttl)
}

func (s *authService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.cacheSvc.IsTokenBlacklisted(ctx, tokenID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
