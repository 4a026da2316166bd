package handlers

import (
	"errors"
	"net/http"

	"github.com/AtRiskMedia/postdup-go/internal/domain/errkind"
	"github.com/gin-gonic/gin"
)

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError writes the error envelope with the status for err's kind.
func respondError(c *gin.Context, err error) {
	kind := errkind.KindOf(err)
	message := err.Error()
	var classified *errkind.Error
	if errors.As(err, &classified) && classified.Err != nil {
		message = classified.Err.Error()
	}
	if kind == errkind.Internal {
		message = "internal error"
	}
	c.JSON(statusFor(kind), gin.H{
		"success": false,
		"error":   gin.H{"code": string(kind), "message": message},
	})
}

func respondInvalid(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   gin.H{"code": string(errkind.ValidationFailed), "message": message},
	})
}

func statusFor(kind errkind.Kind) int {
	switch kind {
	case errkind.NotFound:
		return http.StatusNotFound
	case errkind.ValidationFailed:
		return http.StatusBadRequest
	case errkind.PermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
