package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/clearborder/duty_engine/internal/apperrors"
	portssvc "github.com/clearborder/duty_engine/internal/core/ports/services"
	"github.com/clearborder/duty_engine/internal/dto"
	"github.com/clearborder/duty_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// tradeAgreementHandler handles HTTP requests over eligibility rows.
type tradeAgreementHandler struct {
	agreementService portssvc.TradeAgreementSvcFacade
}

func newTradeAgreementHandler(as portssvc.TradeAgreementSvcFacade) *tradeAgreementHandler {
	return &tradeAgreementHandler{agreementService: as}
}

// registerTradeAgreementRoutes registers routes related to trade agreements.
func registerTradeAgreementRoutes(rg *gin.RouterGroup, agreementService portssvc.TradeAgreementSvcFacade) {
	h := newTradeAgreementHandler(agreementService)

	agreements := rg.Group("/trade-agreements")
	{
		agreements.POST("/eligibility", h.createEligibility)
		agreements.GET("/:agreementCode/eligibility/:code", h.getEligibility)
	}
}

// createEligibility godoc
// @Summary Create a trade-agreement eligibility row
// @Description Records whether a tariff code is eligible for preferential treatment under an agreement (admin operation)
// @Tags trade-agreements
// @Accept json
// @Produce json
// @Param eligibility body dto.CreateEligibilityRequest true "Eligibility details"
// @Success 201 {object} dto.EligibilityResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to create eligibility"
// @Security BearerAuth
// @Router /trade-agreements/eligibility [post]
func (h *tradeAgreementHandler) createEligibility(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateEligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateEligibility", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	eligibility, err := h.agreementService.CreateEligibility(c.Request.Context(), req, creatorUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		} else {
			logger.Error("Failed to create eligibility", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create eligibility"})
		}
		return
	}

	logger.Info("Eligibility created",
		slog.String("eligibility_id", eligibility.EligibilityID),
		slog.String("agreement", eligibility.AgreementCode))
	c.JSON(http.StatusCreated, dto.ToEligibilityResponse(eligibility))
}

// getEligibility godoc
// @Summary Get an eligibility row
// @Description Retrieves the raw eligibility row for a (agreement, tariff code) pair.
// @Tags trade-agreements
// @Produce json
// @Param agreementCode path string true "Agreement code"
// @Param code path string true "Tariff code"
// @Success 200 {object} dto.EligibilityResponse
// @Failure 404 {object} ErrorResponse "No eligibility row for the pair"
// @Failure 500 {object} ErrorResponse "Failed to retrieve eligibility"
// @Security BearerAuth
// @Router /trade-agreements/{agreementCode}/eligibility/{code} [get]
func (h *tradeAgreementHandler) getEligibility(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	agreementCode := c.Param("agreementCode")
	code := c.Param("code")

	eligibility, err := h.agreementService.GetEligibility(c.Request.Context(), code, agreementCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "No eligibility row for this code and agreement"})
		} else {
			logger.Error("Failed to get eligibility",
				slog.String("agreement", agreementCode),
				slog.String("code", code),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve eligibility"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToEligibilityResponse(eligibility))
}
