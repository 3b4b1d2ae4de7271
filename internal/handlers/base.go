package handlers

import (
	"net/http"
	"vidlink/internal/errors"
	"vidlink/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	// Inject Current User。没登录也覆盖一次，传进来的 map 可能复用过
	if user, exists := c.Get(middleware.CheckUserKey); exists {
		obj["CurrentUser"] = user
	} else {
		obj["CurrentUser"] = nil
	}

	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// RenderError 渲染错误页
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message})
}

// RenderServiceError 按服务层错误码选 HTTP 状态码渲染错误页
func RenderServiceError(c *gin.Context, err error) {
	switch errors.GetErrorCode(err) {
	case errors.ErrNotFound:
		RenderError(c, http.StatusNotFound, err.Error())
	case errors.ErrInvalidInput:
		RenderError(c, http.StatusBadRequest, err.Error())
	case errors.ErrForbidden:
		RenderError(c, http.StatusForbidden, err.Error())
	default:
		RenderError(c, http.StatusInternalServerError, "服务器开小差了，请稍后再试")
	}
}

// statusFor 给只回状态码的接口用（HTMX 的 DELETE 请求）
func statusFor(err error) int {
	switch errors.GetErrorCode(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrInvalidInput:
		return http.StatusBadRequest
	case errors.ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
