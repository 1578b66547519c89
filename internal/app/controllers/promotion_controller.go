package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mertcan/gradus/internal/app/models/dto"
	"github.com/mertcan/gradus/internal/app/repositories"
	"github.com/mertcan/gradus/internal/app/services"
	"github.com/mertcan/gradus/internal/middleware"
)

// PromotionController exposes the academic-year clock, the promotion run,
// partial-failure retries, and the graduate archive.
type PromotionController struct {
	promotion *services.PromotionService
	migration *services.MigrationService
	clock     *services.YearClock
	settings  *repositories.SettingsRepository
	graduates *repositories.GraduateRepository
	logger    zerolog.Logger
}

// NewPromotionController creates a new PromotionController
func NewPromotionController(
	promotion *services.PromotionService,
	migration *services.MigrationService,
	clock *services.YearClock,
	settings *repositories.SettingsRepository,
	graduates *repositories.GraduateRepository,
	logger zerolog.Logger,
) *PromotionController {
	return &PromotionController{
		promotion: promotion,
		migration: migration,
		clock:     clock,
		settings:  settings,
		graduates: graduates,
		logger:    logger,
	}
}

// GetCurrentYear returns the persisted academic-year record.
func (c *PromotionController) GetCurrentYear(ctx *gin.Context) {
	settings, err := c.settings.GetYear(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.AcademicYearResponse{
		CurrentYear:  settings.CurrentYear,
		PreviousYear: settings.PreviousYear,
		LastUpdated:  settings.LastUpdated,
		UpdatedBy:    settings.UpdatedBy,
	}, "Current academic year"))
}

// Promote runs the full promotion pipeline and advances the academic year.
func (c *PromotionController) Promote(ctx *gin.Context) {
	acting := middleware.ActingIdentity(ctx)

	result, err := c.promotion.Promote(ctx.Request.Context(), acting)
	if err != nil {
		c.logger.Error().Err(err).Str("actingIdentity", acting).Msg("Promotion run failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.PromotionResponse{
		FromYear:         result.FromYear,
		ToYear:           result.ToYear,
		Archived:         result.Archived,
		Migrated:         result.Migrated,
		FailedPartitions: result.FailedPartitions,
	}, "Promotion completed"))
}

// RetryMigration re-runs the student migration of one level pair. Used to
// clear the failed partitions a promotion reported; already-migrated
// departments have no source documents left, so the retry only touches the
// stragglers.
func (c *PromotionController) RetryMigration(ctx *gin.Context) {
	var req dto.MigrateLevelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid migration request")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	year := c.clock.Current(ctx.Request.Context())
	migrated, failed, err := c.migration.MigrateLevel(ctx.Request.Context(),
		req.FromLevel, req.ToLevel, year, middleware.ActingIdentity(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.PromotionResponse{
		FromYear:         year,
		ToYear:           year,
		Migrated:         migrated,
		FailedPartitions: failed,
	}, "Migration retry completed"))
}

// ListGraduates returns the archived graduate records.
func (c *PromotionController) ListGraduates(ctx *gin.Context) {
	graduates, err := c.graduates.List(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	responses := make([]dto.GraduateResponse, 0, len(graduates))
	for _, g := range graduates {
		responses = append(responses, dto.GraduateResponse{
			StudentID:      g.StudentID,
			RollNo:         g.RollNo,
			Name:           g.Name,
			Email:          g.Email,
			JoiningYear:    g.JoiningYear,
			GraduationYear: g.GraduationYear,
			Department:     g.Department,
			ArchivedAt:     g.ArchivedAt,
		})
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(responses, "Graduate archive"))
}
