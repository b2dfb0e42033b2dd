package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 提现申请状态：pending → approved | rejected，终态不可再变更
const (
	PaymentStatusPending  = "pending"
	PaymentStatusApproved = "approved"
	PaymentStatusRejected = "rejected"
)

// 提现方式
const (
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodWallet       = "wallet"
)

// Payment 佣金提现申请表 — 对应 payments
// amount 创建后不可变；创建时已从推广人余额中原子扣减（预留）
type Payment struct {
	PaymentID      string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"payment_id"`
	AffiliateID    string          `gorm:"type:uuid;not null;index"                       json:"affiliate_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(14,2);not null"                    json:"amount"`
	PaymentMethod  string          `gorm:"type:varchar(20);not null"                      json:"payment_method"`
	PaymentDetails string          `gorm:"type:text;not null;default:'{}'"                json:"payment_details"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	BaseModel

	// 关联
	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID;references:AffiliateID" json:"affiliate,omitempty"`
}

// TableName 指定表名
func (Payment) TableName() string { return "payments" }
