package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
	"github.com/fosware/conecta-toolv1-sub004/pkg/metrics"
	"github.com/fosware/conecta-toolv1-sub004/pkg/rbac"
	"github.com/fosware/conecta-toolv1-sub004/pkg/trace"
	"github.com/fosware/conecta-toolv1-sub004/pkg/util"
)

const identityKey = "identity"

// TraceMiddleware 复用或生成 trace id，并回写到响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeaders(c.GetHeader(trace.HeaderName()), c.GetHeader("X-Request-ID"))
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}

// RequestLogger 请求日志 + 延迟指标
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)

		logger.WithTrace(c.Request.Context(), log).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// AuthMiddleware 校验会话 cookie 或 Bearer 令牌
func AuthMiddleware(secret, cookieName string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
			return
		}

		identity, err := util.VerifyToken(token, secret)
		if err != nil {
			logger.WithTrace(c.Request.Context(), log).Warn("Rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o expirado"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequirePermission 必须在 AuthMiddleware 之后使用
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
			return
		}
		if err := rbac.CheckPermission(identity.UserID, identity.Role, permission); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permisos insuficientes"})
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (util.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return util.Identity{}, false
	}
	identity, ok := v.(util.Identity)
	return identity, ok
}
