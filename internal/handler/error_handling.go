package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cardami/internal/models"
	"cardami/internal/viewstate"
)

func mapServiceError(err error) (int, models.ErrorResponse) {
	var authErr *models.AuthError
	switch {
	case models.IsValidationError(err):
		return http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeValidation, Message: err.Error()}
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, models.ErrorResponse{Code: models.ErrCodeAuthFailed, Message: authErr.Reason}
	case errors.Is(err, models.ErrAuth), errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, models.ErrorResponse{Code: models.ErrCodeUnauthorized, Message: "Authentication required"}
	case errors.Is(err, models.ErrAlreadyClaimed):
		return http.StatusConflict, models.ErrorResponse{Code: models.ErrCodeAlreadyClaimed, Message: "Card is already claimed"}
	case errors.Is(err, models.ErrStaleView), errors.Is(err, viewstate.ErrConflict):
		return http.StatusConflict, models.ErrorResponse{Code: models.ErrCodeStaleView, Message: "Page was reloaded elsewhere, reload to continue"}
	case errors.Is(err, models.ErrInvalidPosition):
		return http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeInvalidPosition, Message: "Card position out of range"}
	case errors.Is(err, models.ErrCardHidden):
		return http.StatusConflict, models.ErrorResponse{Code: models.ErrCodeCardHidden, Message: "Card has not been dealt yet"}
	case errors.Is(err, models.ErrCardNotFlipped):
		return http.StatusConflict, models.ErrorResponse{Code: models.ErrCodeCardNotFlipped, Message: "Flip the card before claiming it"}
	case errors.Is(err, models.ErrShuffleNotAllowed):
		return http.StatusConflict, models.ErrorResponse{Code: models.ErrCodeShuffleDenied, Message: "Flip every card before shuffling"}
	case errors.Is(err, models.ErrClaimNotOpen):
		return http.StatusConflict, models.ErrorResponse{Code: models.ErrCodeClaimNotOpen, Message: "No card is being claimed"}
	case errors.Is(err, models.ErrCardLocked):
		return http.StatusForbidden, models.ErrorResponse{Code: models.ErrCodeCardLocked, Message: "Card is not in your collection yet"}
	case errors.Is(err, models.ErrUnknownCard):
		return http.StatusNotFound, models.ErrorResponse{Code: models.ErrCodeUnknownCard, Message: "Unknown card"}
	case errors.Is(err, models.ErrPersistence):
		return http.StatusServiceUnavailable, models.ErrorResponse{Code: models.ErrCodePersistence, Message: "Could not reach the card store, please retry"}
	case errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: err.Error()}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		return http.StatusInternalServerError, models.ErrorResponse{Code: models.ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}
}

func handleServiceError(c *gin.Context, err error) {
	status, errResp := mapServiceError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errResp)
}

// handleServiceErrorWithPage also returns the page so the client keeps the
// user's draft and inline error.
func handleServiceErrorWithPage(c *gin.Context, err error, page *drawPageResponse) {
	status, errResp := mapServiceError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorWithPage{ErrorResponse: errResp, Page: page})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: message})
}
