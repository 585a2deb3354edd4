package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes 限制请求体大小；超限在绑定时报 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	if n <= 0 {
		return passThrough
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// passThrough 限制值 <= 0 表示不启用
func passThrough(c *gin.Context) { c.Next() }
