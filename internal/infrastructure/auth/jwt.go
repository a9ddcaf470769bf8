package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/infrastructure/config"
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
	ErrTokenNotYetValid  = errors.New("token is not yet valid")
	ErrMissingPharmacyID = errors.New("missing pharmacy_id in claims")
	ErrMissingSecret     = errors.New("jwt secret is not configured")
)

// Claims identify the caller and the pharmacy every request is scoped to
type Claims struct {
	jwt.RegisteredClaims
	PharmacyID string `json:"pharmacy_id"`
	UserID     string `json:"user_id,omitempty"`
	Role       string `json:"role,omitempty"`
}

// PharmacyUUID parses the pharmacy claim
func (c *Claims) PharmacyUUID() (uuid.UUID, error) {
	if c.PharmacyID == "" {
		return uuid.Nil, ErrMissingPharmacyID
	}
	id, err := uuid.Parse(c.PharmacyID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrMissingPharmacyID
	}
	return id, nil
}

// UserUUID parses the optional user claim; a missing user is uuid.Nil
func (c *Claims) UserUUID() uuid.UUID {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// JWTService signs and verifies HS256 access tokens
type JWTService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	hours := cfg.ExpirationHours
	if hours <= 0 {
		hours = 24
	}
	return &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: time.Duration(hours) * time.Hour,
		now:        time.Now,
	}
}

// TokenInput is what GenerateToken puts in a token
type TokenInput struct {
	PharmacyID uuid.UUID
	UserID     uuid.UUID
	Role       string
}

// GenerateToken signs a token for input. Tokens are normally minted by the
// identity provider; this is used by tooling and tests.
func (s *JWTService) GenerateToken(input TokenInput) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	if input.PharmacyID == uuid.Nil {
		return "", time.Time{}, ErrMissingPharmacyID
	}

	now := s.now()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		PharmacyID: input.PharmacyID.String(),
		Role:       input.Role,
	}
	if input.UserID != uuid.Nil {
		claims.Subject = input.UserID.String()
		claims.UserID = input.UserID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies signature, issuer and time claims and requires a pharmacy
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	default:
		return nil, ErrInvalidToken
	}

	if _, err := claims.PharmacyUUID(); err != nil {
		return nil, err
	}
	return claims, nil
}
