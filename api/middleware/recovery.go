package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a panicking handler into a 500 response. The stack goes to
// log, which the server tees onto the error log file when one is configured.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			route := c.FullPath()
			if route == "" {
				route = c.Request.URL.Path
			}
			log.Error("Handler panicked",
				zap.String("panic", fmt.Sprint(r)),
				zap.String("route", route),
				zap.String("method", c.Request.Method),
				zap.String("client_ip", c.ClientIP()),
				zap.Stack("stack"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal error while reading history",
			})
		}()
		c.Next()
	}
}
