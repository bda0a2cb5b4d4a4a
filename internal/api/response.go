package api

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/logger"
)

// ErrorResponse 错误响应
type ErrorResponse = apperrors.ErrorResponse

// SuccessResponse 成功响应
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应
type PageResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// requestIDHeader 调用方传入的请求ID，原样回显
const requestIDHeader = "X-Request-ID"

// respondError 按错误码返回对应状态
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.LogError(err, "请求处理失败",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
	}
	if apperrors.IsRetryable(appErr) {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, apperrors.NewErrorResponse(appErr, c.GetHeader(requestIDHeader)))
}

// respondBindError 请求体解析失败
func respondBindError(c *gin.Context, err error) {
	respondError(c, apperrors.Wrap(err, apperrors.ErrInvalidParam))
}

// pageParams 解析分页参数
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
