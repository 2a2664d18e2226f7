package model

import (
	"time"
)

// RevenueEntryModel 平台收入流水，只允许插入
type RevenueEntryModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	EntryType     string `json:"entry_type" gorm:"not null"`         // platform_fee
	Amount        int64  `json:"amount" gorm:"not null"`             // 恒为非负
	ReferenceId   int64  `json:"reference_id" gorm:"not null;index"` // 关联的支付或结算ID
	ReferenceType string `json:"reference_type" gorm:"not null"`     // payment, settlement
	Description   string `json:"description" gorm:"type:text"`
}

// RevenueEntryType 收入类型
type RevenueEntryType string

const (
	RevenueTypePlatformFee RevenueEntryType = "platform_fee" // 平台手续费
)

// RevenueReferenceType 收入关联对象类型
type RevenueReferenceType string

const (
	RevenueReferencePayment    RevenueReferenceType = "payment"    // 赞助支付
	RevenueReferenceSettlement RevenueReferenceType = "settlement" // 创作者结算
)

// TableName 自定义表名
func (RevenueEntryModel) TableName() string {
	return "revenue_entry"
}
