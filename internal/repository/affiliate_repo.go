package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anipets12/abgwilson-sub001/internal/model"
	pkgerrors "github.com/anipets12/abgwilson-sub001/pkg/errors"
)

// AffiliateRepository 推广人数据访问接口
type AffiliateRepository interface {
	Create(ctx context.Context, affiliate *model.Affiliate) error
	GetByID(ctx context.Context, id string) (*model.Affiliate, error)
	GetByUserID(ctx context.Context, userID string) (*model.Affiliate, error)
	GetByCode(ctx context.Context, code string) (*model.Affiliate, error)
	// DebitBalance 条件扣减余额：balance >= amount 时扣减并返回 nil，
	// 否则返回 pkgerrors.ErrNoRowsAffected。单条 UPDATE，天然原子。
	DebitBalance(ctx context.Context, affiliateID string, amount decimal.Decimal) error
	// CreditEarnings 转化计佣：balance 与 total_earned 同增
	CreditEarnings(ctx context.Context, affiliateID string, amount decimal.Decimal) error
	// RefundBalance 提现被驳回后返还预留金额
	RefundBalance(ctx context.Context, affiliateID string, amount decimal.Decimal) error
}

// affiliateRepo AffiliateRepository 的 GORM 实现
type affiliateRepo struct {
	db *gorm.DB
}

// NewAffiliateRepo 创建 AffiliateRepository 实例
func NewAffiliateRepo(db *gorm.DB) AffiliateRepository {
	return &affiliateRepo{db: db}
}

func (r *affiliateRepo) Create(ctx context.Context, affiliate *model.Affiliate) error {
	return r.db.WithContext(ctx).Create(affiliate).Error
}

func (r *affiliateRepo) GetByID(ctx context.Context, id string) (*model.Affiliate, error) {
	var affiliate model.Affiliate
	err := r.db.WithContext(ctx).
		Where("affiliate_id = ?", id).
		First(&affiliate).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

func (r *affiliateRepo) GetByUserID(ctx context.Context, userID string) (*model.Affiliate, error) {
	var affiliate model.Affiliate
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&affiliate).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

func (r *affiliateRepo) GetByCode(ctx context.Context, code string) (*model.Affiliate, error) {
	var affiliate model.Affiliate
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&affiliate).Error
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

func (r *affiliateRepo) DebitBalance(ctx context.Context, affiliateID string, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.Affiliate{}).
		Where("affiliate_id = ? AND balance >= ?", affiliateID, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNoRowsAffected
	}
	return nil
}

func (r *affiliateRepo) CreditEarnings(ctx context.Context, affiliateID string, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.Affiliate{}).
		Where("affiliate_id = ?", affiliateID).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", amount),
			"total_earned": gorm.Expr("total_earned + ?", amount),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNoRowsAffected
	}
	return nil
}

func (r *affiliateRepo) RefundBalance(ctx context.Context, affiliateID string, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.Affiliate{}).
		Where("affiliate_id = ?", affiliateID).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNoRowsAffected
	}
	return nil
}
