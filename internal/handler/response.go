package handler

import (
	"errors"
	"net/http"

	"github.com/blues/sps/internal/gateway"
	"github.com/blues/sps/internal/logger"
	"github.com/blues/sps/internal/logic"
	"github.com/gin-gonic/gin"
)

// Response 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Pagination 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// HandleError 把业务错误映射为HTTP状态码。
// 未识别的错误只返回通用消息，细节仅落服务端日志。
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, logic.ErrValidation), errors.Is(err, logic.ErrInvalidAmount):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, logic.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, logic.ErrAmountMismatch),
		errors.Is(err, logic.ErrConflict),
		errors.Is(err, logic.ErrInvalidTransition),
		errors.Is(err, logic.ErrGatewayDeclined):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, gateway.ErrUnavailable):
		ErrorResponse(c, http.StatusBadGateway, "支付网关暂时不可用，请稍后重试")
	default:
		logger.Error("Unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		ErrorResponse(c, http.StatusInternalServerError, "内部错误")
	}
}
