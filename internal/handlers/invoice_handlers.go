package handlers

import (
	"net/http"

	"paycore/internal/common"
	"paycore/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// InvoiceHandlers handles HTTP requests for invoices
type InvoiceHandlers struct {
	invoiceService services.InvoiceService
	logger         *zap.Logger
}

// NewInvoiceHandlers creates a new invoice handlers instance
func NewInvoiceHandlers(invoiceService services.InvoiceService, logger *zap.Logger) *InvoiceHandlers {
	return &InvoiceHandlers{
		invoiceService: invoiceService,
		logger:         logger.Named("invoices"),
	}
}

// CreateInvoice handles POST /invoices. The invoice is billed as a gateway
// charge and returned with its hosted payment link.
//
//	@Summary		Create invoice
//	@Description	Bills the items as a gateway charge and returns the invoice with its payment link.
//	@Security		BearerToken
//	@Tags			invoices
//	@Accept			json
//	@Produce		json
//	@Param			request	body	services.InvoiceInput	true	"Invoice"
//	@Success		201	{object}	models.Invoice
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		500	{object}	common.ErrorResponse
//	@Failure		502	{object}	common.ErrorResponse
//	@Failure		503	{object}	common.ErrorResponse
//	@Router			/v1/invoices [post]
func (h *InvoiceHandlers) CreateInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.InvoiceInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	invoice, err := h.invoiceService.Create(ctx, tenantID, req)
	if err != nil {
		return respondError(c, h.logger, "create invoice", err)
	}

	return c.JSON(http.StatusCreated, invoice)
}

// GetInvoice handles GET /invoices/:id
//
//	@Summary		Get invoice
//	@Security		BearerToken
//	@Tags			invoices
//	@Produce		json
//	@Param			id	path	string	true	"Invoice ID"
//	@Success		200	{object}	models.Invoice
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		404	{object}	common.ErrorResponse
//	@Router			/v1/invoices/{id} [get]
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	invoice, err := h.invoiceService.GetByID(ctx, tenantID, id)
	if err != nil {
		return respondError(c, h.logger, "get invoice", err)
	}

	return c.JSON(http.StatusOK, invoice)
}

// ListInvoices handles GET /invoices
//
//	@Summary		List invoices
//	@Security		BearerToken
//	@Tags			invoices
//	@Produce		json
//	@Param			limit	query	int	false	"Page size (max 100)"
//	@Param			offset	query	int	false	"Offset"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Router			/v1/invoices [get]
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset, err := common.ValidatePaginationParams(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoices, err := h.invoiceService.List(ctx, tenantID, limit, offset)
	if err != nil {
		return respondError(c, h.logger, "list invoices", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"limit":    limit,
		"offset":   offset,
	})
}
