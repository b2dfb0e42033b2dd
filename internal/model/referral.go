package model

import "time"

// 推荐状态：pending → converted，只允许前向迁移
const (
	ReferralStatusPending   = "pending"
	ReferralStatusConverted = "converted"
)

// Referral 推荐记录表 — 对应 referrals
// referred_user_id 全表唯一：一个用户只能被推荐一次
type Referral struct {
	ReferralID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"referral_id"`
	AffiliateID    string     `gorm:"type:uuid;not null;index"                       json:"affiliate_id"`
	ReferredUserID string     `gorm:"type:uuid;not null;uniqueIndex"                 json:"referred_user_id"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	ReferralDate   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"referral_date"`
	ConvertedAt    *time.Time `json:"converted_at,omitempty"`
	BaseModel

	// 关联
	Affiliate    *Affiliate `gorm:"foreignKey:AffiliateID;references:AffiliateID"  json:"affiliate,omitempty"`
	ReferredUser *User      `gorm:"foreignKey:ReferredUserID;references:UserID"    json:"referred_user,omitempty"`
}

// TableName 指定表名
func (Referral) TableName() string { return "referrals" }
