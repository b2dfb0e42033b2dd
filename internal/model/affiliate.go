package model

import "github.com/shopspring/decimal"

// Affiliate 推广人表 — 对应 affiliates
// balance 由数据库 CHECK (balance >= 0) 兜底；code 签发后不可变
type Affiliate struct {
	AffiliateID    string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"affiliate_id"`
	UserID         string          `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	Code           string          `gorm:"type:varchar(32);not null;uniqueIndex"          json:"code"`
	IsActive       bool            `gorm:"not null;default:true"                          json:"is_active"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0.15"        json:"commission_rate"`
	Balance        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"          json:"balance"`
	TotalEarned    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"          json:"total_earned"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Affiliate) TableName() string { return "affiliates" }
