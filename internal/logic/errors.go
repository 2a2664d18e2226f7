package logic

import (
	"errors"
)

// 业务错误哨兵。handler层通过 errors.Is 映射为HTTP状态码。
var (
	ErrValidation        = errors.New("参数不合法")
	ErrNotFound          = errors.New("记录不存在")
	ErrInvalidAmount     = errors.New("金额不合法")
	ErrAmountMismatch    = errors.New("支付金额与网关金额不一致")
	ErrGatewayDeclined   = errors.New("支付网关拒绝扣款")
	ErrConflict          = errors.New("操作与当前状态冲突")
	ErrInvalidTransition = errors.New("非法的结算状态转移")
	ErrNoEligibleWork    = errors.New("没有可结算的工作记录")
)
