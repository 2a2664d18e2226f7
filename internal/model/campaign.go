package model

import (
	"time"
)

// CampaignModel 赞助活动
type CampaignModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title        string `json:"title" gorm:"not null"`
	SponsorId    int64  `json:"sponsor_id" gorm:"not null;index"`
	BudgetAmount int64  `json:"budget_amount" gorm:"not null"`
	Status       string `json:"status" gorm:"default:'draft'"` // draft, funded, active, finished
}

// CampaignStatus 活动状态
type CampaignStatus string

const (
	CampaignStatusDraft    CampaignStatus = "draft"    // 草稿，等待赞助款
	CampaignStatusFunded   CampaignStatus = "funded"   // 赞助款已确认
	CampaignStatusActive   CampaignStatus = "active"   // 进行中
	CampaignStatusFinished CampaignStatus = "finished" // 已结束
)

// TableName 自定义表名
func (CampaignModel) TableName() string {
	return "campaign"
}
