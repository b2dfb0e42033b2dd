package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User      UserRepository
	Affiliate AffiliateRepository
	Referral  ReferralRepository
	Payment   PaymentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:        db,
		User:      NewUserRepo(db),
		Affiliate: NewAffiliateRepo(db),
		Referral:  NewReferralRepo(db),
		Payment:   NewPaymentRepo(db),
	}
}

// Transaction 在单个数据库事务中执行 fn
// fn 收到的 Repository 绑定事务连接；fn 返回非 nil 时整体回滚。
// 提现扣减、转化计佣等多步写操作必须经由此方法执行。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		// 无底层连接（单测 mock 聚合）时直接执行
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
