package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/sps/internal/logic"
	"github.com/blues/sps/internal/model"
	"github.com/gin-gonic/gin"
)

// ParticipationHandler 工作记录处理器
type ParticipationHandler struct {
	participationLogic *logic.ParticipationLogic
}

// NewParticipationHandler 创建工作记录处理器
func NewParticipationHandler(participationLogic *logic.ParticipationLogic) *ParticipationHandler {
	return &ParticipationHandler{participationLogic: participationLogic}
}

// CreateParticipationRecord 交付物验收通过后登记计费工作记录
func (h *ParticipationHandler) CreateParticipationRecord(c *gin.Context) {
	var req CreateParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	record := &model.ParticipationRecordModel{
		CampaignId:    req.CampaignId,
		CreatorId:     req.CreatorId,
		PayableAmount: req.PayableAmount,
	}
	if err := h.participationLogic.CreateParticipationRecord(record); err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "工作记录已登记", ToParticipationRecordResponse(record))
}

// GetEligibleWork 查询可结算的工作记录
func (h *ParticipationHandler) GetEligibleWork(c *gin.Context) {
	var creatorId *int64
	if raw := c.Query("creator_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "无效的创作者ID")
			return
		}
		creatorId = &parsed
	}

	grouped, err := h.participationLogic.FindEligible(creatorId)
	if err != nil {
		HandleError(c, err)
		return
	}

	result := make(map[int64][]ParticipationRecordResponse, len(grouped))
	for creator, records := range grouped {
		result[creator] = ToParticipationRecordResponseList(records)
	}

	SuccessResponse(c, http.StatusOK, "查询成功", result)
}
