package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 所有响应统一携带 success 布尔值：
//   成功: {"success": true, ...业务字段}
//   失败: {"success": false, "message": "...", "error": "..."(仅 debug 模式)}

// ErrorBody 失败响应结构
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// PagedCollection 分页集合
type PagedCollection struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}

// NewPage 构造分页集合，totalPages = ceil(total / limit)
func NewPage(data interface{}, total int64, page, limit int) PagedCollection {
	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}
	return PagedCollection{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// ── 成功响应 ──

func write(c *gin.Context, status int, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// OK 200 成功响应
func OK(c *gin.Context, data gin.H) {
	write(c, http.StatusOK, data)
}

// Created 201 创建成功
func Created(c *gin.Context, data gin.H) {
	write(c, http.StatusCreated, data)
}

// ── 错误响应 ──

// Fail 通用错误响应
// 内部错误详情仅在非 Release 模式下返回，生产环境一律脱敏
func Fail(c *gin.Context, httpStatus int, message string, err error) {
	body := ErrorBody{Success: false, Message: message}
	if err != nil && gin.Mode() != gin.ReleaseMode {
		body.Error = err.Error()
	}
	c.JSON(httpStatus, body)
}

// ── 常见快捷方式 ──

// BadRequest 400 参数或业务冲突错误
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message, nil)
}

// BadRequestWith 400 附带业务字段（例如已签发的推广码）
func BadRequestWith(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"success": false, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusBadRequest, body)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, message, nil)
}

// Forbidden 403
func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, message, nil)
}

// NotFound 404
func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, message, nil)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context, message string) {
	Fail(c, http.StatusTooManyRequests, message, nil)
}

// InternalError 500
func InternalError(c *gin.Context, err error) {
	Fail(c, http.StatusInternalServerError, "服务器内部错误", err)
}
