package middleware

import (
	"net/http"

	"relaycast/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware renders the last error a handler attached with c.Error.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if appErr := errors.GetAppError(err); appErr != nil {
			log := logger.Warnw
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				log = logger.Errorw
			}
			log("application error",
				"code", appErr.Code,
				"message", appErr.Message,
				"status", appErr.HTTPStatus,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"cause", appErr.Cause,
			)

			body := gin.H{
				"error":   string(appErr.Code),
				"message": appErr.Message,
			}
			if len(appErr.Context) > 0 {
				body["details"] = appErr.Context
			}
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		logger.Errorw("unhandled error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   string(errors.ErrCodeInternal),
			"message": "Internal server error",
		})
	}
}

// RecoveryMiddleware turns a handler panic into a 500 response.
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				abortWith(c, errors.NewInternalError("Internal server error"))
			}
		}()

		c.Next()
	}
}
