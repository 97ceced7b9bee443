package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"student-management/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes 覆盖 JSON 请求与 Excel 上传；超出时读取请求体返回错误，
// 已声明 Content-Length 超限的请求直接返回 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
