package response

import (
	"errors"
	"net/http"

	"user-management-api/internal/domain"
)

// Resp 非校验类错误统一用这个信封
type Resp struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// MsgEmailTaken 唯一键冲突时 email 字段的提示
const MsgEmailTaken = "The email has already been taken."

// FromError 领域错误 → HTTP 状态码 + 响应体；ok=false 表示未识别（按 500 处理）
func FromError(err error) (status int, body any, ok bool) {
	var verr *domain.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Fields, true
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, map[string][]string{"email": {MsgEmailTaken}}, true
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, Error(CodeUnauthorized, "unauthenticated"), true
	case errors.Is(err, domain.ErrStoreTimeout):
		return http.StatusServiceUnavailable, Error(CodeUnavailable, "store timeout, retry later"), true
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, Error(CodeTooLarge, "request body too large"), true
	}
	return http.StatusInternalServerError, Error(CodeServerError, "internal error"), false
}
