package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/raffleworks/rafflet/internal/payments"
)

func PaymentsMiddleware(provider payments.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("payments", provider)
		c.Next()
	}
}

func GetPaymentsProvider(c *gin.Context) payments.Provider {
	provider, exists := c.Get("payments")
	if !exists {
		return nil
	}
	return provider.(payments.Provider)
}
