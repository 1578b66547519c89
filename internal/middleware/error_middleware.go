package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mertcan/gradus/internal/app/models/dto"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
)

// HandleAPIError maps application errors to the standard error response.
// Controllers delegate everything that is not a binding failure here.
func HandleAPIError(ctx *gin.Context, err error) {
	status, code := classifyError(err)

	detail := dto.NewErrorDetail(code, err.Error())

	var custom *apperrors.CustomError
	if errors.As(err, &custom) && custom.Details != nil {
		detail = detail.WithDetails(custom.Details)
	}
	if status == http.StatusConflict {
		detail = detail.WithSeverity(dto.ErrorSeverityWarning)
	}

	ctx.JSON(status, dto.NewErrorResponse(detail))
}

func classifyError(err error) (int, dto.ErrorCode) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidYearLevel):
		return http.StatusBadRequest, dto.ErrorCodeInvalidYearLevel
	case errors.Is(err, apperrors.ErrUnknownDepartment):
		return http.StatusBadRequest, dto.ErrorCodeUnknownDept
	case errors.Is(err, apperrors.ErrInvalidSlot):
		return http.StatusBadRequest, dto.ErrorCodeInvalidSlot
	case errors.Is(err, apperrors.ErrMalformedEmail):
		return http.StatusBadRequest, dto.ErrorCodeMalformedEmail
	case errors.Is(err, apperrors.ErrValidationFailed):
		return http.StatusBadRequest, dto.ErrorCodeValidationFailed
	case errors.Is(err, apperrors.ErrSlotChoiceRequired):
		return http.StatusConflict, dto.ErrorCodeSlotChoiceRequired
	case errors.Is(err, apperrors.ErrSelfReplacement):
		return http.StatusConflict, dto.ErrorCodeSelfReplacement
	case errors.Is(err, apperrors.ErrPromotionInProgress):
		return http.StatusConflict, dto.ErrorCodePromotionInProgress
	case errors.Is(err, apperrors.ErrPromotionConflict):
		return http.StatusConflict, dto.ErrorCodePromotionConflict
	case errors.Is(err, apperrors.ErrStudentNotFound),
		errors.Is(err, apperrors.ErrAssignmentNotFound),
		errors.Is(err, apperrors.ErrAccountNotFound),
		errors.Is(err, apperrors.ErrResourceNotFound):
		return http.StatusNotFound, dto.ErrorCodeResourceNotFound
	case errors.Is(err, apperrors.ErrAssignmentIncomplete):
		return http.StatusInternalServerError, dto.ErrorCodeAssignmentIncomplete
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.ErrorCodeForbidden
	default:
		return http.StatusInternalServerError, dto.ErrorCodeInternalServer
	}
}
