package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/sps/internal/logic"
	"github.com/blues/sps/internal/model"
	"github.com/gin-gonic/gin"
)

// RevenueHandler 平台收入流水处理器，只读
type RevenueHandler struct {
	revenueLogic *logic.RevenueLogic
}

// NewRevenueHandler 创建收入流水处理器
func NewRevenueHandler(revenueLogic *logic.RevenueLogic) *RevenueHandler {
	return &RevenueHandler{revenueLogic: revenueLogic}
}

// GetRevenueStats 获取收入统计信息
func (h *RevenueHandler) GetRevenueStats(c *gin.Context) {
	stats, err := h.revenueLogic.GetRevenueStats()
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", stats)
}

// ListRevenueByReference 按关联对象查询收入流水
func (h *RevenueHandler) ListRevenueByReference(c *gin.Context) {
	referenceType := c.Query("reference_type")
	if referenceType != string(model.RevenueReferencePayment) && referenceType != string(model.RevenueReferenceSettlement) {
		ErrorResponse(c, http.StatusBadRequest, "无效的关联对象类型")
		return
	}

	referenceId, err := strconv.ParseInt(c.Query("reference_id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的关联ID")
		return
	}

	entries, err := h.revenueLogic.ListByReference(model.RevenueReferenceType(referenceType), referenceId)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", entries)
}
