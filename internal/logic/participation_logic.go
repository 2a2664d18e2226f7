package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/blues/sps/internal/model"
	"gorm.io/gorm"
)

// ParticipationLogic 创作者工作记录业务逻辑
type ParticipationLogic struct {
	db *gorm.DB
}

// NewParticipationLogic 创建工作记录业务逻辑
func NewParticipationLogic(db *gorm.DB) *ParticipationLogic {
	return &ParticipationLogic{db: db}
}

// CreateParticipationRecord 交付物验收通过后登记一条计费工作记录
func (l *ParticipationLogic) CreateParticipationRecord(record *model.ParticipationRecordModel) error {
	if record.CampaignId == 0 {
		return fmt.Errorf("%w: 活动ID不能为空", ErrValidation)
	}
	if record.CreatorId == 0 {
		return fmt.Errorf("%w: 创作者ID不能为空", ErrValidation)
	}
	if record.PayableAmount <= 0 {
		return fmt.Errorf("%w: 应付金额必须大于0", ErrInvalidAmount)
	}

	var campaign model.CampaignModel
	if err := l.db.First(&campaign, record.CampaignId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: 活动不存在", ErrNotFound)
		}
		return fmt.Errorf("查询活动失败: %w", err)
	}

	if record.CompletedAt == nil {
		now := time.Now()
		record.CompletedAt = &now
	}

	if err := l.db.Create(record).Error; err != nil {
		return fmt.Errorf("创建工作记录失败: %w", err)
	}

	return nil
}

// FindEligible 查询已完成且未被认领的工作记录，按创作者分组。
// creatorId 为 nil 时返回全部创作者。
// 该读取在并发下可能是过期快照，正确性由批次构建事务内的认领保证。
func (l *ParticipationLogic) FindEligible(creatorId *int64) (map[int64][]model.ParticipationRecordModel, error) {
	query := l.db.Where("settlement_item_id IS NULL AND completed_at IS NOT NULL")
	if creatorId != nil {
		query = query.Where("creator_id = ?", *creatorId)
	}

	var records []model.ParticipationRecordModel
	if err := query.Order("completed_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询可结算工作记录失败: %w", err)
	}

	grouped := make(map[int64][]model.ParticipationRecordModel)
	for _, record := range records {
		grouped[record.CreatorId] = append(grouped[record.CreatorId], record)
	}

	return grouped, nil
}

// CreatorsWithEligibleWork 查询存在可结算工作的创作者ID列表
func (l *ParticipationLogic) CreatorsWithEligibleWork() ([]int64, error) {
	var creatorIds []int64
	if err := l.db.Model(&model.ParticipationRecordModel{}).
		Where("settlement_item_id IS NULL AND completed_at IS NOT NULL").
		Distinct("creator_id").
		Order("creator_id ASC").
		Pluck("creator_id", &creatorIds).Error; err != nil {
		return nil, fmt.Errorf("查询可结算创作者失败: %w", err)
	}
	return creatorIds, nil
}
