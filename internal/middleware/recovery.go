package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "gemini-gateway/internal/errors"
	"gemini-gateway/internal/httpformat"
	"gemini-gateway/internal/logging"
)

// Recovery returns a panic-recovery middleware that logs the stack trace and
// renders the panic as a 500 APIError in whatever schema the request path
// implies, instead of letting gin's own recovery tear the connection down.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logging.WithReq(c, nil).WithFields(map[string]interface{}{
					"panic": r,
					"stack": string(stack),
				}).Error("panic recovered")

				apiErr := apperrors.New(http.StatusInternalServerError, "internal_error", "server_error", "Internal server error")
				format := httpformat.DetectFromContext(c)
				payload, err := apiErr.ToJSON(format)
				if err != nil {
					c.JSON(apiErr.HTTPStatus, gin.H{"error": gin.H{"message": apiErr.Message}})
					c.Abort()
					return
				}
				c.Data(apiErr.HTTPStatus, "application/json", payload)
				c.Abort()
			}
		}()

		c.Next()
	}
}
