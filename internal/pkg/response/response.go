package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// OK sends a 200 response with the given payload.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error renders err through the uniform error envelope and aborts the request.
// Non-AppError values surface as INTERNAL, never as a raw stack.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	if appErr.Code == CodeRateLimited && !appErr.ResetAt.IsZero() {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(appErr.ResetAt.UnixMilli(), 10))
	}
	c.AbortWithStatusJSON(appErr.Status, gin.H{"error": body})
}
