package model

import (
	"errors"
	"fmt"
)

// 错误分类：
//   - ErrInsufficientData: 历史数据或行情不足，调用方降级为 HOLD / 拒单，不崩溃
//   - RejectedError:       风控或执行前置条件不满足，带原因返回调用方，引擎内部不重试
//   - ErrInvalidConfiguration: 配置非法，启动即失败
var (
	ErrInsufficientData     = errors.New("insufficient data")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// RejectedError 表示一次被拒绝的下单/评估，Reason 是稳定的机器可读字符串
type RejectedError struct {
	Reason string
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("rejected: %s", e.Reason)
	}
	return fmt.Sprintf("rejected: %s (%s)", e.Reason, e.Detail)
}

// Reject 构造一个拒绝错误
func Reject(reason string, detail string) error {
	return &RejectedError{Reason: reason, Detail: detail}
}

// RejectReason 提取拒绝原因；若 err 不是 RejectedError 返回 ("", false)
func RejectReason(err error) (string, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
