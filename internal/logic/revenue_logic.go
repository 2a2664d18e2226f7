package logic

import (
	"fmt"

	"github.com/blues/sps/internal/model"
	"gorm.io/gorm"
)

// RevenueLogic 平台收入流水业务逻辑。流水只增不改，没有更新和删除路径。
type RevenueLogic struct {
	db *gorm.DB
}

// NewRevenueLogic 创建平台收入流水业务逻辑
func NewRevenueLogic(db *gorm.DB) *RevenueLogic {
	return &RevenueLogic{db: db}
}

// Record 写入一条收入流水
func (r *RevenueLogic) Record(entryType model.RevenueEntryType, amount int64, referenceId int64, referenceType model.RevenueReferenceType, description string) (*model.RevenueEntryModel, error) {
	return RecordRevenueTx(r.db, entryType, amount, referenceId, referenceType, description)
}

// RecordRevenueTx 在指定事务内写入一条收入流水。
// 支付确认、结算完成等触发事件必须与流水写入处于同一事务，
// 否则流水可能与产生它的事件不一致。
func RecordRevenueTx(tx *gorm.DB, entryType model.RevenueEntryType, amount int64, referenceId int64, referenceType model.RevenueReferenceType, description string) (*model.RevenueEntryModel, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: 收入金额不能为负数", ErrInvalidAmount)
	}
	if referenceId == 0 {
		return nil, fmt.Errorf("%w: 关联ID不能为空", ErrValidation)
	}

	entry := &model.RevenueEntryModel{
		EntryType:     string(entryType),
		Amount:        amount,
		ReferenceId:   referenceId,
		ReferenceType: string(referenceType),
		Description:   description,
	}

	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("创建收入流水失败: %w", err)
	}

	return entry, nil
}

// ListByReference 按关联对象查询流水
func (r *RevenueLogic) ListByReference(referenceType model.RevenueReferenceType, referenceId int64) ([]model.RevenueEntryModel, error) {
	var entries []model.RevenueEntryModel
	if err := r.db.Where("reference_type = ? AND reference_id = ?", string(referenceType), referenceId).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("查询收入流水失败: %w", err)
	}
	return entries, nil
}

// GetRevenueStats 获取收入统计信息
func (r *RevenueLogic) GetRevenueStats() (map[string]interface{}, error) {
	var totalEntries int64
	var totalAmount int64

	if err := r.db.Model(&model.RevenueEntryModel{}).Count(&totalEntries).Error; err != nil {
		return nil, fmt.Errorf("获取流水总数失败: %w", err)
	}

	if err := r.db.Model(&model.RevenueEntryModel{}).Select("COALESCE(SUM(amount), 0)").Scan(&totalAmount).Error; err != nil {
		return nil, fmt.Errorf("获取收入总额失败: %w", err)
	}

	return map[string]interface{}{
		"total_entries": totalEntries,
		"total_amount":  totalAmount,
	}, nil
}
