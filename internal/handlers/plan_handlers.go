package handlers

import (
	"net/http"

	"paycore/internal/common"
	"paycore/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PlanHandlers handles HTTP requests for billing plans
type PlanHandlers struct {
	planService services.PlanService
	logger      *zap.Logger
}

func NewPlanHandlers(planService services.PlanService, logger *zap.Logger) *PlanHandlers {
	return &PlanHandlers{
		planService: planService,
		logger:      logger.Named("plans"),
	}
}

// CreatePlan handles POST /plans
//
//	@Summary		Create plan
//	@Description	Creates the plan at the gateway and mirrors it locally.
//	@Security		BearerToken
//	@Tags			plans
//	@Accept			json
//	@Produce		json
//	@Param			request	body	services.PlanInput	true	"Plan"
//	@Success		201	{object}	models.Plan
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		500	{object}	common.ErrorResponse
//	@Failure		502	{object}	common.ErrorResponse
//	@Failure		503	{object}	common.ErrorResponse
//	@Router			/v1/plans [post]
func (h *PlanHandlers) CreatePlan(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.PlanInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	plan, err := h.planService.Create(ctx, tenantID, req)
	if err != nil {
		return respondError(c, h.logger, "create plan", err)
	}

	return c.JSON(http.StatusCreated, plan)
}

// GetPlan handles GET /plans/:id
//
//	@Summary		Get plan
//	@Security		BearerToken
//	@Tags			plans
//	@Produce		json
//	@Param			id	path	string	true	"Plan ID"
//	@Success		200	{object}	models.Plan
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		404	{object}	common.ErrorResponse
//	@Router			/v1/plans/{id} [get]
func (h *PlanHandlers) GetPlan(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	plan, err := h.planService.GetByID(ctx, tenantID, id)
	if err != nil {
		return respondError(c, h.logger, "get plan", err)
	}

	return c.JSON(http.StatusOK, plan)
}

// ListPlans handles GET /plans
//
//	@Summary		List plans
//	@Security		BearerToken
//	@Tags			plans
//	@Produce		json
//	@Param			limit	query	int	false	"Page size (max 100)"
//	@Param			offset	query	int	false	"Offset"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Router			/v1/plans [get]
func (h *PlanHandlers) ListPlans(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset, err := common.ValidatePaginationParams(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	plans, err := h.planService.List(ctx, tenantID, limit, offset)
	if err != nil {
		return respondError(c, h.logger, "list plans", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"plans":  plans,
		"limit":  limit,
		"offset": offset,
	})
}

// DeactivatePlan handles PUT /plans/:id/deactivate
//
//	@Summary		Deactivate plan
//	@Security		BearerToken
//	@Tags			plans
//	@Produce		json
//	@Param			id	path	string	true	"Plan ID"
//	@Success		200	{object}	models.Plan
//	@Failure		400	{object}	common.ErrorResponse
//	@Failure		401	{object}	common.ErrorResponse
//	@Failure		404	{object}	common.ErrorResponse
//	@Router			/v1/plans/{id}/deactivate [put]
func (h *PlanHandlers) DeactivatePlan(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	plan, err := h.planService.Deactivate(ctx, tenantID, id)
	if err != nil {
		return respondError(c, h.logger, "deactivate plan", err)
	}

	return c.JSON(http.StatusOK, plan)
}
