package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/sps/internal/logic"
	"github.com/blues/sps/internal/model"
	"github.com/gin-gonic/gin"
)

// SettlementHandler 结算处理器
type SettlementHandler struct {
	settlementLogic *logic.SettlementLogic
	batchLogic      *logic.BatchLogic
}

// NewSettlementHandler 创建结算处理器
func NewSettlementHandler(settlementLogic *logic.SettlementLogic, batchLogic *logic.BatchLogic) *SettlementHandler {
	return &SettlementHandler{
		settlementLogic: settlementLogic,
		batchLogic:      batchLogic,
	}
}

// GetSettlement 查询结算批次详情
func (h *SettlementHandler) GetSettlement(c *gin.Context) {
	settlementId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的结算批次ID")
		return
	}

	settlement, items, err := h.settlementLogic.GetSettlement(settlementId)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", GetSettlementResponse{
		Settlement: ToSettlementResponse(settlement),
		Items:      ToSettlementItemResponseList(items),
	})
}

// ListSettlements 分页查询结算批次
func (h *SettlementHandler) ListSettlements(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	var creatorId *int64
	if raw := c.Query("creator_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "无效的创作者ID")
			return
		}
		creatorId = &parsed
	}

	settlements, total, err := h.settlementLogic.ListSettlements(creatorId, c.Query("status"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "查询成功", ListSettlementsResponse{
		Settlements: ToSettlementResponseList(settlements),
		Pagination: Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}

// SetSettlementStatus 推进结算状态机（仅管理员）
func (h *SettlementHandler) SetSettlementStatus(c *gin.Context) {
	settlementId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的结算批次ID")
		return
	}

	var req SetSettlementStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	settlement, err := h.settlementLogic.Advance(settlementId, logic.AdvanceInput{
		Target:            model.SettlementStatus(req.Status),
		AdminNote:         req.AdminNote,
		TransferConfirmed: req.TransferConfirmed,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "状态已更新", ToSettlementResponse(settlement))
}

// RunSettlementBatch 手动触发一轮批量结算（仅管理员）
func (h *SettlementHandler) RunSettlementBatch(c *gin.Context) {
	report, err := h.batchLogic.RunBatch()
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "批量结算已执行", report)
}
