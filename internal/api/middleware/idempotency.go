package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anipets12/abgwilson-sub001/pkg/redis"
	"github.com/anipets12/abgwilson-sub001/pkg/response"
)

// idempotencyKeyMaxLen 限制客户端幂等键长度
const idempotencyKeyMaxLen = 128

// Idempotency 写操作幂等中间件
// 客户端通过 X-Idempotency-Key 标识一次业务提交；同一用户在 TTL 窗口内
// 携带相同键的重复提交被拒绝，避免网络重试导致的双重下单。
// 键可选：未携带时不做幂等保护。rdb 为 nil 时降级放行。
// 必须挂载在 JWTAuth 之后（依赖上下文中的 user_id）。
func Idempotency(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Idempotency-Key")
		if key == "" || len(key) > idempotencyKeyMaxLen || rdb == nil {
			c.Next()
			return
		}

		userID := c.GetString("user_id")
		claimKey := fmt.Sprintf("%s:%s:%s", userID, c.FullPath(), key)

		first, err := rdb.ClaimIdempotencyKey(c.Request.Context(), claimKey, ttl)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !first {
			response.BadRequest(c, "重复提交：该请求已在处理中")
			c.Abort()
			return
		}

		c.Next()
	}
}
