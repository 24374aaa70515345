package response

import (
	"net/http"
	"time"

	beego "github.com/beego/beego/v2/server/web"
)

// APIResponse 统一 API 响应结构
// 所有 API 都应该返回这个结构，无论成功还是失败
type APIResponse struct {
	Code      int         `json:"code"`                // 业务错误码：0=成功，非0=失败
	Message   string      `json:"message"`             // 错误消息
	Data      interface{} `json:"data,omitempty"`      // 业务数据
	TraceID   string      `json:"trace_id,omitempty"`  // 请求追踪ID
	Timestamp int64       `json:"timestamp,omitempty"` // 响应时间戳（Unix 毫秒）
}

// 错误码定义
const (
	CodeSuccess        = 0    // 成功
	CodeBadRequest     = 1000 // 参数错误
	CodeInvalidWindow  = 1001 // 窗口键格式错误
	CodeBusinessError  = 2000 // 业务错误（通用）
	CodeDrawInProgress = 2001 // 该窗口开奖进行中
	CodeDrawFailed     = 2002 // 开奖失败
	CodeUnauthorized   = 3000 // 未授权
	CodeNotFound       = 4004 // 资源不存在
	CodeSystemError    = 5000 // 系统错误
)

// ErrorMessages 错误消息映射
var ErrorMessages = map[int]string{
	CodeSuccess:        "success",
	CodeBadRequest:     "参数错误",
	CodeInvalidWindow:  "窗口键格式错误，应为 YYYY-MM-DD-HH-mm",
	CodeBusinessError:  "业务处理失败",
	CodeDrawInProgress: "该窗口正在开奖，请稍后重试",
	CodeDrawFailed:     "开奖失败",
	CodeUnauthorized:   "未授权",
	CodeNotFound:       "资源不存在",
	CodeSystemError:    "系统繁忙，请稍后重试",
}

// Success 成功响应
//
// 示例：
//
//	response.Success(c, result, traceID)
func Success(c *beego.Controller, data interface{}, traceID string) {
	write(c, http.StatusOK, CodeSuccess, ErrorMessages[CodeSuccess], data, traceID)
}

// Error 错误响应（使用预定义的错误消息）
func Error(c *beego.Controller, httpStatus int, code int, traceID string) {
	write(c, httpStatus, code, getErrorMessage(code), nil, traceID)
}

// ErrorWithMessage 错误响应（使用自定义错误消息）
func ErrorWithMessage(c *beego.Controller, httpStatus int, code int, message string, traceID string) {
	write(c, httpStatus, code, message, nil, traceID)
}

// ErrorWithData 错误响应并携带数据，例如开奖进行中时仍返回 TriggerResult
func ErrorWithData(c *beego.Controller, httpStatus int, code int, data interface{}, traceID string) {
	write(c, httpStatus, code, getErrorMessage(code), data, traceID)
}

// BadRequest 参数错误响应（HTTP 400）
func BadRequest(c *beego.Controller, message string, traceID string) {
	ErrorWithMessage(c, http.StatusBadRequest, CodeBadRequest, message, traceID)
}

// NotFound 资源不存在响应（HTTP 404）
func NotFound(c *beego.Controller, message string, traceID string) {
	ErrorWithMessage(c, http.StatusNotFound, CodeNotFound, message, traceID)
}

// InternalError 系统错误响应（HTTP 500）
// 注意：生产环境不暴露详细错误，详细信息记录到日志
func InternalError(c *beego.Controller, traceID string) {
	Error(c, http.StatusInternalServerError, CodeSystemError, traceID)
}

func write(c *beego.Controller, httpStatus, code int, message string, data interface{}, traceID string) {
	c.Ctx.Output.SetStatus(httpStatus)
	c.Data["json"] = APIResponse{
		Code:      code,
		Message:   message,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().UnixMilli(),
	}
	_ = c.ServeJSON()
}

// getErrorMessage 获取错误消息，如果未定义则返回通用消息
func getErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "未知错误"
}
