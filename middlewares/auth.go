package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventsapi/utils"
)

// Authenticate verifies the bearer credential and injects userId into the
// request context. Handlers behind it can trust c.GetInt64("userId").
func Authenticate(c *gin.Context) {
	token := c.Request.Header.Get("Authorization")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
		return
	}

	userId, err := utils.VerifyToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
		return
	}

	c.Set("userId", userId)
	c.Next()
}
