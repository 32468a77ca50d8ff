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

// tariffEntryHandler handles HTTP requests over the tariff schedule.
type tariffEntryHandler struct {
	tariffService portssvc.TariffEntrySvcFacade
}

func newTariffEntryHandler(ts portssvc.TariffEntrySvcFacade) *tariffEntryHandler {
	return &tariffEntryHandler{tariffService: ts}
}

// registerTariffEntryRoutes registers routes related to tariff entries and
// manual overrides.
func registerTariffEntryRoutes(rg *gin.RouterGroup, tariffService portssvc.TariffEntrySvcFacade) {
	h := newTariffEntryHandler(tariffService)

	entries := rg.Group("/tariff-entries")
	{
		entries.POST("", h.createEntry)
		entries.GET("/:code", h.getEntry)
		entries.GET("/:code/resolve", h.resolveEntry)
	}

	overrides := rg.Group("/overrides")
	{
		overrides.POST("", h.createOverride)
	}
}

// createEntry godoc
// @Summary Create a tariff entry
// @Description Adds a new entry to the tariff schedule (admin operation)
// @Tags tariff-entries
// @Accept json
// @Produce json
// @Param entry body dto.CreateTariffEntryRequest true "Entry details"
// @Success 201 {object} dto.TariffEntryResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to create entry"
// @Security BearerAuth
// @Router /tariff-entries [post]
func (h *tariffEntryHandler) createEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateTariffEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	entry, err := h.tariffService.CreateEntry(c.Request.Context(), req, creatorUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		} else {
			logger.Error("Failed to create tariff entry", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create tariff entry"})
		}
		return
	}

	logger.Info("Tariff entry created", slog.String("entry_id", entry.EntryID), slog.String("code", entry.Code))
	c.JSON(http.StatusCreated, dto.ToTariffEntryResponse(entry))
}

// getEntry godoc
// @Summary Get a tariff entry by exact code
// @Description Retrieves the best entry for an exact tariff code without hierarchy fallback.
// @Tags tariff-entries
// @Produce json
// @Param code path string true "Tariff code"
// @Param version query string false "Schedule version (defaults to latest active)"
// @Success 200 {object} dto.TariffEntryResponse
// @Failure 404 {object} ErrorResponse "Entry not found"
// @Failure 500 {object} ErrorResponse "Failed to retrieve entry"
// @Security BearerAuth
// @Router /tariff-entries/{code} [get]
func (h *tariffEntryHandler) getEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	code := c.Param("code")
	version := c.Query("version")

	entry, err := h.tariffService.GetEntry(c.Request.Context(), code, version)
	if err != nil {
		h.respondEntryError(c, logger, code, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTariffEntryResponse(entry))
}

// resolveEntry godoc
// @Summary Resolve a tariff entry with hierarchy fallback
// @Description Retrieves the best entry for a tariff code, walking the 10 -> 8 -> 6 digit hierarchy and preferring the most specific entry with usable rate data.
// @Tags tariff-entries
// @Produce json
// @Param code path string true "Tariff code"
// @Param version query string false "Schedule version (defaults to latest active)"
// @Success 200 {object} dto.TariffEntryResponse
// @Failure 400 {object} ErrorResponse "Code too short"
// @Failure 404 {object} ErrorResponse "No entry found anywhere in the hierarchy"
// @Failure 500 {object} ErrorResponse "Failed to resolve entry"
// @Security BearerAuth
// @Router /tariff-entries/{code}/resolve [get]
func (h *tariffEntryHandler) resolveEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	code := c.Param("code")
	version := c.Query("version")

	entry, err := h.tariffService.ResolveEntry(c.Request.Context(), code, version)
	if err != nil {
		h.respondEntryError(c, logger, code, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTariffEntryResponse(entry))
}

func (h *tariffEntryHandler) respondEntryError(c *gin.Context, logger *slog.Logger, code string, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No tariff entry found for code " + code})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	} else {
		logger.Error("Failed to look up tariff entry", slog.String("code", code), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to look up tariff entry"})
	}
}

// createOverride godoc
// @Summary Create a manual formula override
// @Description Pins the formula for a (code, country, formula type) to a reviewed value. Overrides take priority over every other rate source.
// @Tags overrides
// @Accept json
// @Produce json
// @Param override body dto.CreateOverrideRequest true "Override details"
// @Success 201 {object} dto.OverrideResponse
// @Failure 400 {object} ErrorResponse "Invalid input or unevaluable formula"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to create override"
// @Security BearerAuth
// @Router /overrides [post]
func (h *tariffEntryHandler) createOverride(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateOverride", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	override, err := h.tariffService.CreateOverride(c.Request.Context(), req, creatorUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrEvaluation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		} else {
			logger.Error("Failed to create override", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create override"})
		}
		return
	}

	logger.Info("Manual override created",
		slog.String("override_id", override.OverrideID),
		slog.String("code", override.Code),
		slog.String("country", override.CountryCode))
	c.JSON(http.StatusCreated, dto.ToOverrideResponse(override))
}
