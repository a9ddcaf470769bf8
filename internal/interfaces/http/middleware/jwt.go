package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pharmabill/backend/internal/infrastructure/auth"
	"github.com/pharmabill/backend/internal/infrastructure/logger"
	"github.com/pharmabill/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

var errMissingCredentials = errors.New("missing bearer credentials")

// TokenValidator verifies a bearer token
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Validator TokenValidator
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// AllowAnonymous lets requests without an Authorization header through,
	// leaving the pharmacy to the X-Pharmacy-ID header. Development only.
	AllowAnonymous bool
	Logger         *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(validator TokenValidator) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		Validator: validator,
		SkipPaths: []string{"/health", "/api/v1/health"},
	}
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(validator))
}

// JWTAuthMiddlewareWithConfig creates JWT authentication middleware with custom config
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" && cfg.AllowAnonymous {
			c.Next()
			return
		}
		if authHeader == "" {
			abortUnauthorized(c, log, errMissingCredentials, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, log, errMissingCredentials, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		if tokenString == "" {
			abortUnauthorized(c, log, errMissingCredentials, "Missing token")
			return
		}

		claims, err := cfg.Validator.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, log, err, "Token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		if claims.UserID != "" {
			c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		}
		c.Next()
	}
}

// abortUnauthorized answers 401 with a code the client can act on
func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code, message = dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingPharmacyID):
		code, message = dto.ErrCodeTokenInvalid, "Token is not bound to a pharmacy"
	case errors.Is(err, auth.ErrInvalidToken):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}
