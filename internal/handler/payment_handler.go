package handler

import (
	"net/http"

	"github.com/blues/sps/internal/logic"
	"github.com/gin-gonic/gin"
)

// PaymentHandler 支付处理器
type PaymentHandler struct {
	paymentLogic *logic.PaymentLogic
}

// NewPaymentHandler 创建支付处理器
func NewPaymentHandler(paymentLogic *logic.PaymentLogic) *PaymentHandler {
	return &PaymentHandler{paymentLogic: paymentLogic}
}

// PreparePayment 创建待确认支付，同一订单号幂等
func (h *PaymentHandler) PreparePayment(c *gin.Context) {
	var req PreparePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	payment, err := h.paymentLogic.Prepare(logic.PrepareInput{
		OrderRef:   req.OrderRef,
		CampaignId: req.CampaignId,
		PayerId:    req.PayerId,
		Amount:     req.Amount,
		Method:     req.Method,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "支付已创建", ToPaymentResponse(payment))
}

// ConfirmPayment 确认支付
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	payment, err := h.paymentLogic.Confirm(c.Request.Context(), req.OrderRef, req.GatewayAmount, req.GatewayReference)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "支付已确认", ToPaymentResponse(payment))
}

// GetPayment 按订单号查询支付
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	orderRef := c.Param("order_ref")
	if orderRef == "" {
		ErrorResponse(c, http.StatusBadRequest, "订单号不能为空")
		return
	}

	payment, err := h.paymentLogic.GetPaymentByOrderRef(orderRef)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", ToPaymentResponse(payment))
}
