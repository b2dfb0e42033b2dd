package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/anipets12/abgwilson-sub001/internal/model"
	pkgerrors "github.com/anipets12/abgwilson-sub001/pkg/errors"
)

// ReferralStats 推荐统计聚合结果
type ReferralStats struct {
	Total     int64
	Converted int64
}

// ReferralRepository 推荐记录数据访问接口
type ReferralRepository interface {
	Create(ctx context.Context, referral *model.Referral) error
	GetByID(ctx context.Context, id string) (*model.Referral, error)
	GetByReferredUserID(ctx context.Context, userID string) (*model.Referral, error)
	// ListByAffiliate 按推荐时间倒序分页，预加载被推荐用户
	ListByAffiliate(ctx context.Context, affiliateID string, offset, limit int) ([]model.Referral, int64, error)
	// ListAllByAffiliate 全量倒序列表（导出用）
	ListAllByAffiliate(ctx context.Context, affiliateID string) ([]model.Referral, error)
	CountByAffiliate(ctx context.Context, affiliateID string) (*ReferralStats, error)
	// MarkConverted 条件迁移 pending → converted，已终态时返回 pkgerrors.ErrNoRowsAffected
	MarkConverted(ctx context.Context, referralID string) error
}

// referralRepo ReferralRepository 的 GORM 实现
type referralRepo struct {
	db *gorm.DB
}

// NewReferralRepo 创建 ReferralRepository 实例
func NewReferralRepo(db *gorm.DB) ReferralRepository {
	return &referralRepo{db: db}
}

func (r *referralRepo) Create(ctx context.Context, referral *model.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *referralRepo) GetByID(ctx context.Context, id string) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.WithContext(ctx).
		Where("referral_id = ?", id).
		First(&referral).Error
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepo) GetByReferredUserID(ctx context.Context, userID string) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.WithContext(ctx).
		Where("referred_user_id = ?", userID).
		First(&referral).Error
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *referralRepo) ListByAffiliate(ctx context.Context, affiliateID string, offset, limit int) ([]model.Referral, int64, error) {
	var referrals []model.Referral
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Referral{}).Where("affiliate_id = ?", affiliateID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("ReferredUser").
		Offset(offset).Limit(limit).
		Order("referral_date DESC").
		Find(&referrals).Error; err != nil {
		return nil, 0, err
	}

	return referrals, total, nil
}

func (r *referralRepo) ListAllByAffiliate(ctx context.Context, affiliateID string) ([]model.Referral, error) {
	var referrals []model.Referral
	err := r.db.WithContext(ctx).
		Preload("ReferredUser").
		Where("affiliate_id = ?", affiliateID).
		Order("referral_date DESC").
		Find(&referrals).Error
	if err != nil {
		return nil, err
	}
	return referrals, nil
}

func (r *referralRepo) CountByAffiliate(ctx context.Context, affiliateID string) (*ReferralStats, error) {
	var stats ReferralStats

	db := r.db.WithContext(ctx).Model(&model.Referral{})

	if err := db.Where("affiliate_id = ?", affiliateID).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Where("affiliate_id = ? AND status = ?", affiliateID, model.ReferralStatusConverted).
		Count(&stats.Converted).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *referralRepo) MarkConverted(ctx context.Context, referralID string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("referral_id = ? AND status = ?", referralID, model.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":       model.ReferralStatusConverted,
			"converted_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNoRowsAffected
	}
	return nil
}
