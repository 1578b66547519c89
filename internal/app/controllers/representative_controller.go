package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/app/models/dto"
	"github.com/mertcan/gradus/internal/app/services"
	"github.com/mertcan/gradus/internal/middleware"
)

// RepresentativeController exposes the slot assignment state machine for one
// (year level, department) partition at a time.
type RepresentativeController struct {
	reps   *services.RepresentativeService
	logger zerolog.Logger
}

// NewRepresentativeController creates a new RepresentativeController
func NewRepresentativeController(reps *services.RepresentativeService, logger zerolog.Logger) *RepresentativeController {
	return &RepresentativeController{
		reps:   reps,
		logger: logger,
	}
}

// List returns the active assignments of a partition.
func (c *RepresentativeController) List(ctx *gin.Context) {
	level, dept, ok := c.partitionParams(ctx)
	if !ok {
		return
	}

	active, err := c.reps.ListActive(ctx.Request.Context(), level, dept)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	responses := make([]dto.RepresentativeResponse, 0, len(active))
	for _, a := range active {
		responses = append(responses, assignmentResponse(a))
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(responses, "Active representatives"))
}

// Assign makes a student the active holder of a slot.
func (c *RepresentativeController) Assign(ctx *gin.Context) {
	level, dept, ok := c.partitionParams(ctx)
	if !ok {
		return
	}

	var req dto.AssignRepresentativeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid assignment request")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	result, err := c.reps.Assign(ctx.Request.Context(), services.AssignInput{
		YearLevel:      level,
		Department:     dept,
		Slot:           models.SlotID(req.Slot),
		StudentID:      req.StudentID,
		ActingIdentity: middleware.ActingIdentity(ctx),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewStructuredResponse(assignResultResponse(result), "Representative assigned"))
}

// Replace swaps the holder of an occupied slot.
func (c *RepresentativeController) Replace(ctx *gin.Context) {
	level, dept, ok := c.partitionParams(ctx)
	if !ok {
		return
	}

	var req dto.ReplaceRepresentativeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid replacement request")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	result, err := c.reps.Replace(ctx.Request.Context(), services.AssignInput{
		YearLevel:      level,
		Department:     dept,
		Slot:           models.SlotID(req.Slot),
		StudentID:      req.StudentID,
		ActingIdentity: middleware.ActingIdentity(ctx),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(assignResultResponse(result), "Representative replaced"))
}

// Deactivate ends a slot's active assignment, keeping the record as history.
func (c *RepresentativeController) Deactivate(ctx *gin.Context) {
	c.revoke(ctx, false)
}

// Delete ends a slot's active assignment and removes the record.
func (c *RepresentativeController) Delete(ctx *gin.Context) {
	c.revoke(ctx, true)
}

func (c *RepresentativeController) revoke(ctx *gin.Context, remove bool) {
	level, dept, ok := c.partitionParams(ctx)
	if !ok {
		return
	}
	slot := models.SlotID(ctx.Param("slot"))

	var err error
	if remove {
		err = c.reps.Delete(ctx.Request.Context(), level, dept, slot, middleware.ActingIdentity(ctx))
	} else {
		err = c.reps.Deactivate(ctx.Request.Context(), level, dept, slot, middleware.ActingIdentity(ctx))
	}
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	message := "Representative deactivated"
	if remove {
		message = "Representative assignment deleted"
	}
	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(nil, message))
}

// Remove ends whatever active assignment a student holds in the partition.
func (c *RepresentativeController) Remove(ctx *gin.Context) {
	level, dept, ok := c.partitionParams(ctx)
	if !ok {
		return
	}
	studentID := ctx.Param("studentId")

	err := c.reps.Remove(ctx.Request.Context(), level, dept, studentID, middleware.ActingIdentity(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(nil, "Representative removed"))
}

// Repair reconciles the partition's flag projections against the assignment
// records.
func (c *RepresentativeController) Repair(ctx *gin.Context) {
	level, dept, ok := c.partitionParams(ctx)
	if !ok {
		return
	}

	result, err := c.reps.RepairProjections(ctx.Request.Context(), level, dept)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(dto.RepairProjectionsResponse{
		StudentFlagsRepaired: result.StudentFlagsRepaired,
		RoleFlagsRepaired:    result.RoleFlagsRepaired,
	}, "Projection repair completed"))
}

func (c *RepresentativeController) partitionParams(ctx *gin.Context) (int, string, bool) {
	level, err := strconv.Atoi(ctx.Param("year"))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidYearLevel, "Invalid year level")
		errorDetail = errorDetail.WithDetails("Year level must be a number").WithField("year")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, "", false
	}
	return level, ctx.Param("department"), true
}

func assignmentResponse(a *models.CRAssignment) dto.RepresentativeResponse {
	return dto.RepresentativeResponse{
		ID:         a.ID,
		Slot:       string(a.Slot),
		StudentID:  a.StudentID,
		Name:       a.Name,
		Email:      a.Email,
		YearLevel:  a.YearLevel,
		BatchYear:  a.BatchYear,
		Department: a.Department,
		Active:     a.Active,
		AssignedAt: a.AssignedAt,
		AssignedBy: a.AssignedBy,
		ReplacedAt: a.ReplacedAt,
		RevokedAt:  a.RevokedAt,
	}
}

func assignResultResponse(r *services.AssignResult) dto.AssignRepresentativeResponse {
	return dto.AssignRepresentativeResponse{
		Assignment:     assignmentResponse(r.Assignment),
		AccountID:      r.AccountID,
		AccountCreated: r.AccountCreated,
		Credential:     r.Credential,
	}
}
