package handlers

import (
	"net/http"

	"paycore/internal/common"
	"paycore/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PaymentHandlers handles HTTP requests for payments
type PaymentHandlers struct {
	paymentService services.TransactionService
	logger         *zap.Logger
}

// NewPaymentHandlers creates a new payment handlers instance
func NewPaymentHandlers(paymentService services.TransactionService, logger *zap.Logger) *PaymentHandlers {
	return &PaymentHandlers{
		paymentService: paymentService,
		logger:         logger.Named("payments"),
	}
}

// CreatePayment handles POST /payments
//
//	@Summary		Create payment
//	@Description	Records a pending transaction and charges it at the tenant gateway, or the simulator when the tenant has no gateway.
//	@Security		BearerToken
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body	services.CreatePaymentRequest	true	"Payment"
//	@Success		201	{object}	services.PaymentResponse
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		500	{object}	common.ErrorResponse
//	@Failure		502	{object}	common.ErrorResponse
//	@Router			/v1/payments [post]
func (h *PaymentHandlers) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	payment, err := h.paymentService.CreatePayment(ctx, tenantID, req)
	if err != nil {
		return respondError(c, h.logger, "create payment", err)
	}

	return c.JSON(http.StatusCreated, payment)
}

// GetPayment handles GET /payments/:id
//
//	@Summary		Get payment
//	@Security		BearerToken
//	@Tags			payments
//	@Produce		json
//	@Param			id	path	string	true	"Transaction ID"
//	@Success		200	{object}	models.Transaction
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		404	{object}	common.ErrorResponse
//	@Router			/v1/payments/{id} [get]
func (h *PaymentHandlers) GetPayment(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	payment, err := h.paymentService.GetPayment(ctx, tenantID, id)
	if err != nil {
		return respondError(c, h.logger, "get payment", err)
	}

	return c.JSON(http.StatusOK, payment)
}

// GetPaymentStatus handles GET /payments/:id/status. It asks the gateway for
// the current status of non-terminal payments.
//
//	@Summary		Get payment status
//	@Security		BearerToken
//	@Tags			payments
//	@Produce		json
//	@Param			id	path	string	true	"Transaction ID"
//	@Success		200	{object}	services.PaymentResponse
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		404	{object}	common.ErrorResponse
//	@Router			/v1/payments/{id}/status [get]
func (h *PaymentHandlers) GetPaymentStatus(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	status, err := h.paymentService.GetPaymentStatus(ctx, tenantID, id)
	if err != nil {
		return respondError(c, h.logger, "get payment status", err)
	}

	return c.JSON(http.StatusOK, status)
}

// ListPayments handles GET /payments
//
//	@Summary		List payments
//	@Security		BearerToken
//	@Tags			payments
//	@Produce		json
//	@Param			limit	query	int	false	"Page size (max 100)"
//	@Param			offset	query	int	false	"Offset"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Router			/v1/payments [get]
func (h *PaymentHandlers) ListPayments(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset, err := common.ValidatePaginationParams(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	payments, err := h.paymentService.ListPayments(ctx, tenantID, limit, offset)
	if err != nil {
		return respondError(c, h.logger, "list payments", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"payments": payments,
		"limit":    limit,
		"offset":   offset,
	})
}
