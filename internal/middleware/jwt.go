package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"paycore/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TokenVerifier validates caller bearer tokens, either against a shared HMAC
// secret or against an identity provider's JWKS.
type TokenVerifier struct {
	keyFunc jwt.Keyfunc
	methods []string
	jwks    *keyfunc.JWKS
}

func NewHMACVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{
		keyFunc: func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		methods: []string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()},
	}
}

// NewJWKSVerifier fetches the key set once and refreshes it in the background
// until Close is called.
func NewJWKSVerifier(jwksURL string, logger *zap.Logger) (*TokenVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("jwks refresh failed", zap.String("url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, err
	}
	return &TokenVerifier{
		keyFunc: jwks.Keyfunc,
		methods: []string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg()},
		jwks:    jwks,
	}, nil
}

func (v *TokenVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

var errMissingClaim = errors.New("missing claim")

// Identity parses tokenString and returns the caller's user and tenant.
func (v *TokenVerifier) Identity(tokenString string) (uuid.UUID, uuid.UUID, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc, jwt.WithValidMethods(v.methods))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, uuid.Nil, jwt.ErrTokenInvalidClaims
	}

	sub, _ := claims["sub"].(string)
	tenant, _ := claims["tenant_id"].(string)
	if sub == "" || tenant == "" {
		return uuid.Nil, uuid.Nil, errMissingClaim
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, tenantID, nil
}

// JWTMiddleware handles JWT token validation. The tenant is taken from the
// tenant_id claim; every downstream lookup is scoped by it.
func JWTMiddleware(verifier *TokenVerifier, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			userID, tenantID, err := verifier.Identity(tokenString)
			if err != nil {
				logger.Debug("rejected bearer token", zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			ctx := common.WithIdentity(c.Request().Context(), userID, tenantID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
