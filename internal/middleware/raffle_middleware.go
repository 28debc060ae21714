package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/raffleworks/rafflet/config"
	"github.com/raffleworks/rafflet/internal/allocation"
)

func RaffleMiddleware(cfg *config.RaffleConfig, allocator *allocation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("raffle_config", cfg)
		c.Set("allocator", allocator)
		c.Next()
	}
}

func GetRaffleConfig(c *gin.Context) *config.RaffleConfig {
	cfg, exists := c.Get("raffle_config")
	if !exists {
		return nil
	}
	return cfg.(*config.RaffleConfig)
}

func GetAllocator(c *gin.Context) *allocation.Service {
	allocator, exists := c.Get("allocator")
	if !exists {
		return nil
	}
	return allocator.(*allocation.Service)
}
