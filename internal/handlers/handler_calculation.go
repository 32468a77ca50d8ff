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
	"github.com/ulule/limiter/v3"
)

// calculationHandler handles HTTP requests for duty calculations.
type calculationHandler struct {
	calculationService portssvc.CalculationSvcFacade
}

func newCalculationHandler(cs portssvc.CalculationSvcFacade) *calculationHandler {
	return &calculationHandler{calculationService: cs}
}

// registerCalculationRoutes registers routes related to duty calculations.
// The calculation endpoint is the expensive one and carries the rate limit.
func registerCalculationRoutes(rg *gin.RouterGroup, calculationService portssvc.CalculationSvcFacade, rateLimiter *limiter.Limiter) {
	h := newCalculationHandler(calculationService)

	calculations := rg.Group("/calculations")
	{
		calculations.POST("", middleware.RateLimit(rateLimiter), h.calculateDuty)
		calculations.GET("/:calculationID", h.getCalculationByID)
	}
}

// calculateDuty godoc
// @Summary Calculate import duty for a shipment
// @Description Resolves the applicable rate formula for a tariff code and country, evaluates it against the declared shipment, applies additional tariffs and post-calculation taxes, and returns the full breakdown. The calculation is persisted for audit.
// @Tags calculations
// @Accept json
// @Produce json
// @Param calculation body dto.CalculateDutyRequest true "Shipment details"
// @Success 200 {object} dto.CalculationResponse
// @Failure 400 {object} ErrorResponse "Invalid input or unevaluable formula"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "No rate data for the tariff code"
// @Failure 500 {object} ErrorResponse "Calculation failed"
// @Security BearerAuth
// @Router /calculations [post]
func (h *calculationHandler) calculateDuty(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CalculateDutyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CalculateDuty", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("code", req.Code), slog.String("country", req.CountryOfOrigin))
	logger.Info("Received duty calculation request")

	record, err := h.calculationService.CalculateDuty(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("No rate data for code", slog.String("error", err.Error()))
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "No rate data found for tariff code " + req.Code})
		} else if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrEvaluation) {
			logger.Warn("Calculation rejected", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		} else {
			logger.Error("Calculation failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to calculate duty"})
		}
		return
	}

	logger.Info("Calculation completed",
		slog.String("calculation_id", record.CalculationID),
		slog.String("rate_source", record.RateSource))
	c.JSON(http.StatusOK, dto.ToCalculationResponse(record))
}

// getCalculationByID godoc
// @Summary Get a past calculation
// @Description Retrieves a persisted calculation record by its ID.
// @Tags calculations
// @Produce json
// @Param calculationID path string true "Calculation ID"
// @Success 200 {object} dto.CalculationResponse
// @Failure 404 {object} ErrorResponse "Calculation not found"
// @Failure 500 {object} ErrorResponse "Failed to retrieve calculation"
// @Security BearerAuth
// @Router /calculations/{calculationID} [get]
func (h *calculationHandler) getCalculationByID(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	calculationID := c.Param("calculationID")

	record, err := h.calculationService.GetCalculationByID(c.Request.Context(), calculationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Calculation not found"})
		} else {
			logger.Error("Failed to get calculation", slog.String("calculation_id", calculationID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve calculation"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToCalculationResponse(record))
}
