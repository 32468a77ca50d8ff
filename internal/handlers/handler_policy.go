package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	portssvc "github.com/clearborder/duty_engine/internal/core/ports/services"
	"github.com/clearborder/duty_engine/internal/dto"
	"github.com/clearborder/duty_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// policyHandler handles HTTP requests over policy records.
type policyHandler struct {
	policyService portssvc.PolicySvcFacade
}

func newPolicyHandler(ps portssvc.PolicySvcFacade) *policyHandler {
	return &policyHandler{policyService: ps}
}

// registerPolicyRoutes registers routes related to policy records.
func registerPolicyRoutes(rg *gin.RouterGroup, policyService portssvc.PolicySvcFacade) {
	h := newPolicyHandler(policyService)

	policies := rg.Group("/policies")
	{
		policies.POST("", h.createPolicy)
		policies.GET("", h.listPolicies)
		policies.DELETE("/:policyID", h.deactivatePolicy)
	}
}

// createPolicy godoc
// @Summary Create a policy record
// @Description Adds a new additional-tariff or tax policy (admin operation)
// @Tags policies
// @Accept json
// @Produce json
// @Param policy body dto.CreatePolicyRequest true "Policy details"
// @Success 201 {object} dto.PolicyResponse
// @Failure 400 {object} ErrorResponse "Invalid input or unevaluable formula"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to create policy"
// @Security BearerAuth
// @Router /policies [post]
func (h *policyHandler) createPolicy(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreatePolicy", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	policy, err := h.policyService.CreatePolicy(c.Request.Context(), req, creatorUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrEvaluation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		} else {
			logger.Error("Failed to create policy", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create policy"})
		}
		return
	}

	logger.Info("Policy created", slog.String("policy_id", policy.PolicyID), slog.String("tax_code", policy.TaxCode))
	c.JSON(http.StatusCreated, dto.ToPolicyResponse(policy))
}

// listPolicies godoc
// @Summary List active policies
// @Description Retrieves active policy records, optionally filtered by type (comma-separated).
// @Tags policies
// @Produce json
// @Param types query string false "Comma-separated policy types (ADD_ON, POST_CALCULATION, STANDALONE, CONDITIONAL)"
// @Success 200 {array} dto.PolicyResponse
// @Failure 400 {object} ErrorResponse "Unknown policy type"
// @Failure 500 {object} ErrorResponse "Failed to list policies"
// @Security BearerAuth
// @Router /policies [get]
func (h *policyHandler) listPolicies(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var types []domain.PolicyType
	if raw := c.Query("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			t := domain.PolicyType(strings.TrimSpace(strings.ToUpper(part)))
			switch t {
			case domain.PolicyAddOn, domain.PolicyPostCalculation, domain.PolicyStandalone, domain.PolicyConditional:
				types = append(types, t)
			default:
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown policy type: " + string(t)})
				return
			}
		}
	}

	policies, err := h.policyService.ListActivePolicies(c.Request.Context(), types)
	if err != nil {
		logger.Error("Failed to list policies", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list policies"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListPolicyResponse(policies))
}

// deactivatePolicy godoc
// @Summary Deactivate a policy record
// @Description Clears the active flag of a policy record; the row is kept for audit.
// @Tags policies
// @Produce json
// @Param policyID path string true "Policy ID"
// @Success 204 "Deactivated"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Policy not found"
// @Failure 500 {object} ErrorResponse "Failed to deactivate policy"
// @Security BearerAuth
// @Router /policies/{policyID} [delete]
func (h *policyHandler) deactivatePolicy(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	policyID := c.Param("policyID")

	updaterUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Updater user ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.policyService.DeactivatePolicy(c.Request.Context(), policyID, updaterUserID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Policy not found"})
		} else {
			logger.Error("Failed to deactivate policy", slog.String("policy_id", policyID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to deactivate policy"})
		}
		return
	}

	logger.Info("Policy deactivated", slog.String("policy_id", policyID))
	c.Status(http.StatusNoContent)
}
