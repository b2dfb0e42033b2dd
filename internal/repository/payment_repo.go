package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/anipets12/abgwilson-sub001/internal/model"
	pkgerrors "github.com/anipets12/abgwilson-sub001/pkg/errors"
)

// PaymentRepository 提现申请数据访问接口
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	// ListByAffiliate 按创建时间倒序分页
	ListByAffiliate(ctx context.Context, affiliateID string, offset, limit int) ([]model.Payment, int64, error)
	// ListAllByAffiliate 全量倒序列表（导出用）
	ListAllByAffiliate(ctx context.Context, affiliateID string) ([]model.Payment, error)
	CountPendingByAffiliate(ctx context.Context, affiliateID string) (int64, error)
	// MarkResolved 条件迁移 pending → approved|rejected，已终态时返回 pkgerrors.ErrNoRowsAffected
	MarkResolved(ctx context.Context, paymentID, status string) error
}

// paymentRepo PaymentRepository 的 GORM 实现
type paymentRepo struct {
	db *gorm.DB
}

// NewPaymentRepo 创建 PaymentRepository 实例
func NewPaymentRepo(db *gorm.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepo) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepo) ListByAffiliate(ctx context.Context, affiliateID string, offset, limit int) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Payment{}).Where("affiliate_id = ?", affiliateID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (r *paymentRepo) ListAllByAffiliate(ctx context.Context, affiliateID string) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepo) CountPendingByAffiliate(ctx context.Context, affiliateID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, model.PaymentStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *paymentRepo) MarkResolved(ctx context.Context, paymentID, status string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("payment_id = ? AND status = ?", paymentID, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNoRowsAffected
	}
	return nil
}
