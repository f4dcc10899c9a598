package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/task-manager-api/internal/service"
	"github.com/noah-isme/task-manager-api/pkg/config"
	appErrors "github.com/noah-isme/task-manager-api/pkg/errors"
	"github.com/noah-isme/task-manager-api/pkg/response"
)

// RateLimit bounds requests per client IP within a fixed window, counted
// in Redis so the budget holds across server instances. It runs before
// authentication so credential stuffing on the auth endpoints is bounded
// too. When Redis is unreachable the limiter fails closed rather than
// letting abuse through unmetered.
func RateLimit(client *redis.Client, logger *zap.Logger, metrics *service.MetricsService, endpoint string, budget config.Budget) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:" + endpoint + ":" + c.ClientIP()
		ctx := c.Request.Context()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Error("rate limiter unavailable", zap.String("endpoint", endpoint), zap.Error(err))
			response.Error(c, appErrors.ErrServiceUnavailable)
			c.Abort()
			return
		}

		// First hit in the window owns setting the expiry.
		if count == 1 {
			if err := client.Expire(ctx, key, budget.Window).Err(); err != nil {
				logger.Error("rate limiter expire failed", zap.String("endpoint", endpoint), zap.Error(err))
				response.Error(c, appErrors.ErrServiceUnavailable)
				c.Abort()
				return
			}
		}

		if count > int64(budget.Requests) {
			metrics.ObserveRateLimited(endpoint)
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
