package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anipets12/abgwilson-sub001/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportAffiliateNotFound = errors.New("推广人不存在")
	ErrExportGenerateFail      = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 面向后台：将指定推广人的推荐与提现历史导出为 Excel (.xlsx)
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 两类记录各占一个 Sheet，均按时间倒序
type ExportService interface {
	// ExportAffiliateHistory 导出推广人历史为 Excel
	ExportAffiliateHistory(ctx context.Context, affiliateID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

func (s *exportService) ExportAffiliateHistory(ctx context.Context, affiliateID string) (*bytes.Buffer, string, error) {
	// 1. 推广人必须存在
	affiliate, err := s.repo.Affiliate.GetByID(ctx, affiliateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrExportAffiliateNotFound
		}
		s.logger.Error("查询推广人失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 全量历史
	referrals, err := s.repo.Referral.ListAllByAffiliate(ctx, affiliateID)
	if err != nil {
		s.logger.Error("查询推荐历史失败", zap.Error(err))
		return nil, "", err
	}
	payments, err := s.repo.Payment.ListAllByAffiliate(ctx, affiliateID)
	if err != nil {
		s.logger.Error("查询提现历史失败", zap.Error(err))
		return nil, "", err
	}

	// 3. 组装工作簿
	f := excelize.NewFile()
	defer f.Close()

	const referralSheet = "推荐记录"
	const paymentSheet = "提现记录"

	if err := f.SetSheetName("Sheet1", referralSheet); err != nil {
		return nil, "", ErrExportGenerateFail
	}
	if _, err := f.NewSheet(paymentSheet); err != nil {
		return nil, "", ErrExportGenerateFail
	}

	referralHeader := []interface{}{"推荐ID", "被推荐用户", "邮箱", "状态", "推荐时间", "转化时间"}
	if err := f.SetSheetRow(referralSheet, "A1", &referralHeader); err != nil {
		return nil, "", ErrExportGenerateFail
	}
	for i, r := range referrals {
		userName, userEmail := "", ""
		if r.ReferredUser != nil {
			userName = r.ReferredUser.Name
			userEmail = r.ReferredUser.Email
		}
		convertedAt := ""
		if r.ConvertedAt != nil {
			convertedAt = r.ConvertedAt.Format("2006-01-02 15:04")
		}
		row := []interface{}{
			r.ReferralID,
			userName,
			userEmail,
			r.Status,
			r.ReferralDate.Format("2006-01-02 15:04"),
			convertedAt,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(referralSheet, cell, &row); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}

	paymentHeader := []interface{}{"申请ID", "金额", "提现方式", "状态", "申请时间", "处理时间"}
	if err := f.SetSheetRow(paymentSheet, "A1", &paymentHeader); err != nil {
		return nil, "", ErrExportGenerateFail
	}
	for i, p := range payments {
		resolvedAt := ""
		if p.ResolvedAt != nil {
			resolvedAt = p.ResolvedAt.Format("2006-01-02 15:04")
		}
		row := []interface{}{
			p.PaymentID,
			p.Amount.StringFixed(2),
			p.PaymentMethod,
			p.Status,
			p.CreatedAt.Format("2006-01-02 15:04"),
			resolvedAt,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(paymentSheet, cell, &row); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写入 Excel 缓冲失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("affiliate_%s_history.xlsx", affiliate.Code)
	return buf, filename, nil
}
