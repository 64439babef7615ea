package handlers

import (
	"errors"

	"paycore/internal/common"
	"paycore/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respondError maps service errors onto the error envelope. Gateway and
// storage detail stays in the log.
func respondError(c echo.Context, logger *zap.Logger, operation string, err error) error {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		configErr     *services.ConfigurationError
		authErr       *services.AuthError
		gatewayErr    *services.GatewayError
		mirrorErr     *services.MirrorError
	)

	switch {
	case errors.As(err, &validationErr):
		return common.SendValidationError(c, validationErr.Field, validationErr.Message)
	case errors.As(err, &notFoundErr):
		return common.SendNotFoundError(c, notFoundErr.Resource)
	case errors.As(err, &configErr), errors.As(err, &authErr):
		logger.Warn(operation+": gateway unavailable", zap.Error(err))
		return common.SendUnavailableError(c, "payment gateway is not available for this account")
	case errors.As(err, &gatewayErr):
		logger.Error(operation+": gateway call failed", zap.Error(err))
		return common.SendBadGatewayError(c, "payment could not be processed, try again")
	case errors.As(err, &mirrorErr):
		logger.Error(operation+": remote object not mirrored",
			zap.String("kind", mirrorErr.Kind),
			zap.String("provider_id", mirrorErr.ProviderID),
			zap.Error(err))
		return common.SendServerError(c, "request accepted by the gateway but not recorded; it will be reconciled")
	default:
		logger.Error(operation+" failed", zap.Error(err))
		return common.SendServerError(c, "request could not be completed")
	}
}
