package middleware

import (
	"errors"
	"net/http"

	"rsi-website-backend/internal/delivery/http/response"
	"rsi-website-backend/pkg/apperror"
	"rsi-website-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.Err != nil {
				logger.Log.Warn("request failed", "status", appErr.Code, "path", c.FullPath(), "request_id", c.GetString(RequestIDKey), "error", appErr.Err)
			}
			response.Error(c, appErr.Code, appErr.Message, appErr.Details)
			return
		}

		// Never expose internal error details to clients
		logger.Log.Error("internal server error", "path", c.FullPath(), "request_id", c.GetString(RequestIDKey), "error", err)
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}
