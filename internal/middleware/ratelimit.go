package middleware

import (
	"time"

	"paycore/internal/caching"
	"paycore/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RateLimit caps requests per key over window. Keys are the caller's tenant
// when authenticated, the client IP otherwise. Cache failures let the
// request through.
func RateLimit(cache caching.CacheService, limit int, window time.Duration, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limit <= 0 {
				return next(c)
			}

			key := "ip:" + c.RealIP()
			if tenantID, ok := common.GetTenantIDFromContext(c.Request().Context()); ok {
				key = "tenant:" + tenantID.String()
			}

			limited, err := cache.IsRateLimited(c.Request().Context(), key, limit, window)
			if err != nil {
				logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			if limited {
				return common.SendTooManyRequestsError(c)
			}
			return next(c)
		}
	}
}
