package handlers

import (
	"net/http"

	"paycore/internal/common"
	"paycore/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SubscriptionHandlers handles HTTP requests for subscriptions
type SubscriptionHandlers struct {
	subscriptionService services.SubscriptionService
	logger              *zap.Logger
}

// NewSubscriptionHandlers creates a new subscription handlers instance
func NewSubscriptionHandlers(subscriptionService services.SubscriptionService, logger *zap.Logger) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		subscriptionService: subscriptionService,
		logger:              logger.Named("subscriptions"),
	}
}

// CreateSubscription handles POST /subscriptions
//
//	@Summary		Create subscription
//	@Description	Creates the subscription at the gateway and mirrors it locally.
//	@Security		BearerToken
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			request	body	services.SubscriptionInput	true	"Subscription"
//	@Success		201	{object}	models.Subscription
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		404	{object}	common.ErrorResponse
//	@Failure		500	{object}	common.ErrorResponse
//	@Failure		502	{object}	common.ErrorResponse
//	@Failure		503	{object}	common.ErrorResponse
//	@Router			/v1/subscriptions [post]
func (h *SubscriptionHandlers) CreateSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.SubscriptionInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	subscription, err := h.subscriptionService.Create(ctx, tenantID, req)
	if err != nil {
		return respondError(c, h.logger, "create subscription", err)
	}

	return c.JSON(http.StatusCreated, subscription)
}

// GetSubscription handles GET /subscriptions/:id
//
//	@Summary		Get subscription
//	@Security		BearerToken
//	@Tags			subscriptions
//	@Produce		json
//	@Param			id	path	string	true	"Subscription ID"
//	@Success		200	{object}	models.Subscription
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		404	{object}	common.ErrorResponse
//	@Router			/v1/subscriptions/{id} [get]
func (h *SubscriptionHandlers) GetSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	subscription, err := h.subscriptionService.GetByID(ctx, tenantID, id)
	if err != nil {
		return respondError(c, h.logger, "get subscription", err)
	}

	return c.JSON(http.StatusOK, subscription)
}

// ListSubscriptions handles GET /subscriptions
//
//	@Summary		List subscriptions
//	@Security		BearerToken
//	@Tags			subscriptions
//	@Produce		json
//	@Param			limit	query	int	false	"Page size (max 100)"
//	@Param			offset	query	int	false	"Offset"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Router			/v1/subscriptions [get]
func (h *SubscriptionHandlers) ListSubscriptions(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset, err := common.ValidatePaginationParams(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	subscriptions, err := h.subscriptionService.List(ctx, tenantID, limit, offset)
	if err != nil {
		return respondError(c, h.logger, "list subscriptions", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": subscriptions,
		"limit":         limit,
		"offset":        offset,
	})
}

// CancelSubscription handles PUT /subscriptions/:id/cancel. With
// ?at_period_end=true the subscription stays active until its period ends.
//
//	@Summary		Cancel subscription
//	@Security		BearerToken
//	@Tags			subscriptions
//	@Produce		json
//	@Param			id	path	string	true	"Subscription ID"
//	@Param			at_period_end	query	bool	false	"Keep active until the period ends"
//	@Success		200	{object}	models.Subscription
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		404	{object}	common.ErrorResponse
//	@Failure		502	{object}	common.ErrorResponse
//	@Router			/v1/subscriptions/{id}/cancel [put]
func (h *SubscriptionHandlers) CancelSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	atPeriodEnd := c.QueryParam("at_period_end") == "true"

	subscription, err := h.subscriptionService.Cancel(ctx, tenantID, id, atPeriodEnd)
	if err != nil {
		return respondError(c, h.logger, "cancel subscription", err)
	}

	return c.JSON(http.StatusOK, subscription)
}
