package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/blues/sps/internal/logger"
	"github.com/blues/sps/internal/model"
	"gorm.io/gorm"
)

// claimRetryLimit 认领冲突时的批次重建次数上限
const claimRetryLimit = 3

// SettlementLogic 结算批次业务逻辑
type SettlementLogic struct {
	db *gorm.DB
}

// NewSettlementLogic 创建结算批次业务逻辑
func NewSettlementLogic(db *gorm.DB) *SettlementLogic {
	return &SettlementLogic{db: db}
}

// BuildSettlement 把指定创作者的全部可结算工作原子地收进一个新批次。
// 认领通过条件更新完成：只有 settlement_item_id 仍为 NULL 的行才会被占用，
// 任何一行被并发认领都会使本次事务回滚并对剩余未认领子集重试。
// 这保证一条工作记录至多被一个批次认领。
func (s *SettlementLogic) BuildSettlement(creatorId int64) (*model.SettlementModel, error) {
	if creatorId == 0 {
		return nil, fmt.Errorf("%w: 创作者ID不能为空", ErrValidation)
	}

	for attempt := 0; attempt < claimRetryLimit; attempt++ {
		settlement, err := s.tryBuildSettlement(creatorId)
		if err == nil {
			return settlement, nil
		}
		if errors.Is(err, ErrConflict) {
			logger.Warn("Claim conflict while building settlement for creator %d, retrying (attempt %d)",
				creatorId, attempt+1)
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: 认领冲突重试次数耗尽", ErrConflict)
}

// tryBuildSettlement 单次批次构建事务
func (s *SettlementLogic) tryBuildSettlement(creatorId int64) (*model.SettlementModel, error) {
	var settlement *model.SettlementModel

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 事务内重新选取未认领记录，外部的快照读不可信
		var records []model.ParticipationRecordModel
		if err := tx.Where("creator_id = ? AND settlement_item_id IS NULL AND completed_at IS NOT NULL", creatorId).
			Order("id ASC").
			Find(&records).Error; err != nil {
			return fmt.Errorf("查询可结算工作记录失败: %w", err)
		}

		if len(records) == 0 {
			return ErrNoEligibleWork
		}

		var totalAmount int64
		campaignIds := make([]int64, 0, len(records))
		for _, record := range records {
			totalAmount += record.PayableAmount
			campaignIds = append(campaignIds, record.CampaignId)
		}

		// 取活动标题做审计冗余
		var campaigns []model.CampaignModel
		if err := tx.Where("id IN ?", campaignIds).Find(&campaigns).Error; err != nil {
			return fmt.Errorf("查询活动失败: %w", err)
		}
		titles := make(map[int64]string, len(campaigns))
		for _, campaign := range campaigns {
			titles[campaign.Id] = campaign.Title
		}

		newSettlement := &model.SettlementModel{
			CreatorId:   creatorId,
			TotalAmount: totalAmount,
			Status:      string(model.SettlementStatusPending),
		}
		if err := tx.Create(newSettlement).Error; err != nil {
			return fmt.Errorf("创建结算批次失败: %w", err)
		}

		for _, record := range records {
			item := &model.SettlementItemModel{
				SettlementId:          newSettlement.Id,
				ParticipationRecordId: record.Id,
				Amount:                record.PayableAmount,
				CampaignTitle:         titles[record.CampaignId],
			}
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("创建结算明细失败: %w", err)
			}

			// 认领槽位的CAS：槽位仍为空才写入
			res := tx.Model(&model.ParticipationRecordModel{}).
				Where("id = ? AND settlement_item_id IS NULL", record.Id).
				Update("settlement_item_id", item.Id)
			if res.Error != nil {
				return fmt.Errorf("认领工作记录失败: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				// 被其他批次抢先认领，整个事务作废后重试
				return fmt.Errorf("%w: 工作记录 %d 已被其他批次认领", ErrConflict, record.Id)
			}
		}

		settlement = newSettlement
		return nil
	})
	if err != nil {
		return nil, err
	}

	return settlement, nil
}

// AdvanceInput 状态转移入参
type AdvanceInput struct {
	Target            model.SettlementStatus
	AdminNote         string
	TransferConfirmed bool // 调用方声明外部打款已完成，completed 转移必需
}

// Advance 推进结算状态机。转移表之外的任何转移都会被拒绝。
// processing→failed 会在同一事务内释放全部认领槽位并删除批次明细，
// 工作记录重新进入可结算池，可被后续批次再次认领。
func (s *SettlementLogic) Advance(settlementId int64, input AdvanceInput) (*model.SettlementModel, error) {
	if !model.ValidSettlementStatus(string(input.Target)) {
		return nil, fmt.Errorf("%w: 未知状态 %s", ErrValidation, input.Target)
	}

	var settlement model.SettlementModel

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&settlement, settlementId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 结算批次不存在", ErrNotFound)
			}
			return fmt.Errorf("查询结算批次失败: %w", err)
		}

		current := model.SettlementStatus(settlement.Status)
		if !current.CanTransitionTo(input.Target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, input.Target)
		}

		updates := map[string]interface{}{
			"status": string(input.Target),
		}
		if input.AdminNote != "" {
			updates["admin_notes"] = input.AdminNote
		}

		switch input.Target {
		case model.SettlementStatusCompleted:
			// 本服务不移动资金，只记录外部打款结果
			if !input.TransferConfirmed {
				return fmt.Errorf("%w: 未确认外部打款结果", ErrValidation)
			}
			now := time.Now()
			updates["completed_at"] = &now
		case model.SettlementStatusFailed:
			if input.AdminNote == "" {
				return fmt.Errorf("%w: 结算失败必须填写原因", ErrValidation)
			}
		}

		// 以当前状态为条件更新，并发转移单写者胜出
		res := tx.Model(&model.SettlementModel{}).
			Where("id = ? AND status = ?", settlement.Id, string(current)).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("更新结算状态失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: 结算状态已被并发修改", ErrConflict)
		}

		if input.Target == model.SettlementStatusFailed {
			// 补偿：释放全部认领槽位
			itemIds := tx.Model(&model.SettlementItemModel{}).
				Select("id").
				Where("settlement_id = ?", settlement.Id)
			if err := tx.Model(&model.ParticipationRecordModel{}).
				Where("settlement_item_id IN (?)", itemIds).
				Update("settlement_item_id", nil).Error; err != nil {
				return fmt.Errorf("释放工作记录失败: %w", err)
			}
			// 明细随之删除，否则唯一索引会挡住下一次认领；
			// 审计信息保留在批次本身（总额、admin_notes）和日志里
			if err := tx.Where("settlement_id = ?", settlement.Id).
				Delete(&model.SettlementItemModel{}).Error; err != nil {
				return fmt.Errorf("清除失败批次明细失败: %w", err)
			}
		}

		settlement.Status = string(input.Target)
		if input.AdminNote != "" {
			settlement.AdminNotes = input.AdminNote
		}
		if v, ok := updates["completed_at"].(*time.Time); ok {
			settlement.CompletedAt = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.Target == model.SettlementStatusFailed {
		// 审计留痕：资金相关的失败必须在返回前落日志
		logger.Warn("Settlement %d for creator %d marked failed, claims released: %s",
			settlement.Id, settlement.CreatorId, input.AdminNote)
	}

	return &settlement, nil
}

// GetSettlement 查询结算批次及其明细
func (s *SettlementLogic) GetSettlement(settlementId int64) (*model.SettlementModel, []model.SettlementItemModel, error) {
	var settlement model.SettlementModel
	if err := s.db.First(&settlement, settlementId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: 结算批次不存在", ErrNotFound)
		}
		return nil, nil, fmt.Errorf("查询结算批次失败: %w", err)
	}

	var items []model.SettlementItemModel
	if err := s.db.Where("settlement_id = ?", settlement.Id).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, nil, fmt.Errorf("查询结算明细失败: %w", err)
	}

	return &settlement, items, nil
}

// ListSettlements 分页查询结算批次
func (s *SettlementLogic) ListSettlements(creatorId *int64, status string, page, pageSize int) ([]model.SettlementModel, int64, error) {
	if status != "" && !model.ValidSettlementStatus(status) {
		return nil, 0, fmt.Errorf("%w: 未知状态 %s", ErrValidation, status)
	}

	query := s.db.Model(&model.SettlementModel{})
	if creatorId != nil {
		query = query.Where("creator_id = ?", *creatorId)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取结算批次总数失败: %w", err)
	}

	var settlements []model.SettlementModel
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&settlements).Error; err != nil {
		return nil, 0, fmt.Errorf("查询结算批次失败: %w", err)
	}

	return settlements, total, nil
}
