package model

import (
	"time"
)

// ParticipationRecordModel 已验收的创作者计费工作单元
type ParticipationRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId    int64      `json:"campaign_id" gorm:"not null;index"`
	CreatorId     int64      `json:"creator_id" gorm:"not null;index"`
	PayableAmount int64      `json:"payable_amount" gorm:"not null"`
	CompletedAt   *time.Time `json:"completed_at"`

	// 认领槽位：只在批次构建事务内从 NULL 置为结算明细ID，
	// 仅由结算失败的补偿路径清空
	SettlementItemId *int64 `json:"settlement_item_id" gorm:"uniqueIndex"`
}

// TableName 自定义表名
func (ParticipationRecordModel) TableName() string {
	return "participation_record"
}
