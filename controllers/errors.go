package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/branch-ordering/services"
	"github.com/yeremiapane/branch-ordering/utils"
)

// statusFor maps service errors to HTTP status codes. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrPromotionNotFound),
		errors.Is(err, services.ErrBranchNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrBranchMismatch):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrDuplicatePromo):
		return http.StatusConflict
	case errors.Is(err, services.ErrTotalMismatch),
		errors.Is(err, services.ErrInvalidPromoCode),
		errors.Is(err, services.ErrInvalidCheckout),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidOption),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPrepTime),
		errors.Is(err, services.ErrInvalidPromotion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondServiceError hides internal error text behind a generic message.
func respondServiceError(c *gin.Context, err error, generic string) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		utils.ErrorLogger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		utils.RespondError(c, code, errors.New(generic))
		return
	}
	utils.RespondError(c, code, err)
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid "+name))
		return 0, false
	}
	return uint(id), true
}
