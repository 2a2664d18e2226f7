package model

import (
	"time"
)

// SettlementModel 创作者结算批次
type SettlementModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CreatorId   int64      `json:"creator_id" gorm:"not null;index"`
	TotalAmount int64      `json:"total_amount" gorm:"not null"`          // 恒等于明细金额之和
	Status      string     `json:"status" gorm:"default:'pending';index"` // pending, processing, completed, failed
	CompletedAt *time.Time `json:"completed_at"`
	AdminNotes  string     `json:"admin_notes" gorm:"type:text"`
}

// SettlementItemModel 结算明细，对应一条被认领的工作记录
type SettlementItemModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	SettlementId          int64  `json:"settlement_id" gorm:"not null;index"`
	ParticipationRecordId int64  `json:"participation_record_id" gorm:"not null;uniqueIndex"`
	Amount                int64  `json:"amount" gorm:"not null"`
	CampaignTitle         string `json:"campaign_title"` // 冗余字段，用于审计展示
}

// SettlementStatus 结算状态
type SettlementStatus string

const (
	SettlementStatusPending    SettlementStatus = "pending"    // 待处理
	SettlementStatusProcessing SettlementStatus = "processing" // 打款中
	SettlementStatusCompleted  SettlementStatus = "completed"  // 已完成（终态）
	SettlementStatusFailed     SettlementStatus = "failed"     // 失败（终态）
)

// settlementTransitions 状态机转移表，表外的转移一律拒绝
var settlementTransitions = map[SettlementStatus][]SettlementStatus{
	SettlementStatusPending:    {SettlementStatusProcessing},
	SettlementStatusProcessing: {SettlementStatusCompleted, SettlementStatusFailed},
}

// CanTransitionTo 判断状态转移是否合法
func (s SettlementStatus) CanTransitionTo(target SettlementStatus) bool {
	for _, next := range settlementTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal 判断是否为终态
func (s SettlementStatus) IsTerminal() bool {
	return s == SettlementStatusCompleted || s == SettlementStatusFailed
}

// ValidSettlementStatus 校验状态取值
func ValidSettlementStatus(s string) bool {
	switch SettlementStatus(s) {
	case SettlementStatusPending, SettlementStatusProcessing,
		SettlementStatusCompleted, SettlementStatusFailed:
		return true
	}
	return false
}

// TableName 自定义表名
func (SettlementModel) TableName() string {
	return "settlement"
}

// TableName 自定义表名
func (SettlementItemModel) TableName() string {
	return "settlement_item"
}
