package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/client"
	"github.com/yeremiapane/restaurant-pos/orders"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// respondServiceError maps agent and backend errors onto the local API.
// Backend rejections keep their code in data so screens can show the right
// notice.
func respondServiceError(c *gin.Context, err error) {
	var domainErr *client.DomainError
	switch {
	case errors.Is(err, client.ErrAuthentication):
		utils.RespondError(c, http.StatusUnauthorized, err)
	case errors.As(err, &domainErr):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{"code": domainErr.Code, "status": domainErr.Status})
	case errors.Is(err, cart.ErrEmptyCart):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrUnknownItem), errors.Is(err, orders.ErrUnknownOrder):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrItemUnavailable):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{"code": client.CodeItemUnavailable})
	case errors.Is(err, cart.ErrDealNotApplicable),
		errors.Is(err, orders.ErrNoNextStatus),
		errors.Is(err, orders.ErrAdvanceInFlight),
		errors.Is(err, services.ErrCheckoutInFlight):
		utils.RespondError(c, http.StatusConflict, err)
	case client.IsTransient(err):
		utils.RespondError(c, http.StatusBadGateway, err)
	default:
		utils.ErrorLogger.Errorf("unhandled error on %s: %v", c.FullPath(), err)
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
