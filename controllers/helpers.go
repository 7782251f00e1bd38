package controllers

import (
	"net/http"
	"strconv"

	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

// respondError writes a ServiceError with its code so clients can branch on
// the kind of failure without parsing the message.
func respondError(ctx *gin.Context, svcErr *services.ServiceError) {
	ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message, "code": svcErr.Code})
}

// requesterFrom extracts the authenticated caller, writing a 401 when the
// auth middleware did not run or stored nothing usable.
func requesterFrom(ctx *gin.Context) (models.Requester, bool) {
	requester, err := middleware.GetRequester(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return models.Requester{}, false
	}
	return requester, true
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 10
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}
