package middleware

import (
	"crypto/subtle"

	"relaycast/pkg/errors"

	"github.com/gin-gonic/gin"
)

const EventSecretHeader = "X-Hasura-Event-Secret"

// EventSecretMiddleware rejects requests whose event secret header does not
// match the configured secret.
func EventSecretMiddleware(secret string) gin.HandlerFunc {
	expected := []byte(secret)

	return func(c *gin.Context) {
		provided := c.GetHeader(EventSecretHeader)
		if provided == "" {
			abortWith(c, errors.NewUnauthorizedError("event secret header required"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			abortWith(c, errors.NewUnauthorizedError("invalid event secret"))
			return
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"error":   string(appErr.Code),
		"message": appErr.Message,
	})
}
