package handlers

import (
	"net/http"

	"paycore/internal/common"
	"paycore/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ReconcileHandlers struct {
	reconciler services.ReconciliationService
	logger     *zap.Logger
}

func NewReconcileHandlers(reconciler services.ReconciliationService, logger *zap.Logger) *ReconcileHandlers {
	return &ReconcileHandlers{
		reconciler: reconciler,
		logger:     logger.Named("reconcile"),
	}
}

// Reconcile handles POST /reconcile for the caller's tenant.
//
//	@Summary		Reconcile tenant
//	@Description	Adopts gateway objects missing locally and catches up statuses for the caller tenant.
//	@Security		BearerToken
//	@Tags			reconciliation
//	@Produce		json
//	@Success		200	{object}	services.ReconcileReport
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		502	{object}	common.ErrorResponse
//	@Failure		503	{object}	common.ErrorResponse
//	@Router			/v1/reconcile [post]
func (h *ReconcileHandlers) Reconcile(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	report, err := h.reconciler.ReconcileTenant(ctx, tenantID)
	if err != nil {
		return respondError(c, h.logger, "reconcile", err)
	}

	return c.JSON(http.StatusOK, report)
}
