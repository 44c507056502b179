package middleware

import (
	"net/http"
	"strings"

	"macbook-agent-server/src/configs"

	"github.com/gin-gonic/gin"
)

// CORS 返回一个统一的跨域中间件
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// 允许所有来源，或者你可以指定特定的来源
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
		} else {
			c.Header("Access-Control-Allow-Origin", "*")
		}

		// 统一允许的头与方法
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400") // 24小时

		// 处理 OPTIONS 预检请求
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// StaticTokenAuth 使用配置中的静态Token列表做Bearer认证
// 未启用认证时直接放行
func StaticTokenAuth(cfg *configs.Config) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(cfg.Server.Auth.Tokens))
	for _, t := range cfg.Server.Auth.Tokens {
		if t.Token != "" {
			allowed[t.Token] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if !cfg.Server.Auth.Enabled {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的认证token"})
			c.Abort()
			return
		}

		token := authHeader[7:]
		if _, ok := allowed[token]; !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的认证token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
