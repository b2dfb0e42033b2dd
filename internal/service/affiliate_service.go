package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anipets12/abgwilson-sub001/config"
	"github.com/anipets12/abgwilson-sub001/internal/dto"
	"github.com/anipets12/abgwilson-sub001/internal/model"
	"github.com/anipets12/abgwilson-sub001/internal/repository"
	pkgerrors "github.com/anipets12/abgwilson-sub001/pkg/errors"
)

// ── 推广返利模块业务错误 ──

var (
	ErrCodeAlreadyIssued        = errors.New("推广码已签发")
	ErrCodeGenerateExhausted    = errors.New("推广码生成冲突次数超限")
	ErrAffiliateNotFound        = errors.New("尚未开通推广资格")
	ErrInvalidReferralCode      = errors.New("推广码无效或已停用")
	ErrSelfReferral             = errors.New("不能使用本人的推广码")
	ErrAlreadyReferred          = errors.New("该用户已被推荐过")
	ErrInvalidAmount            = errors.New("金额必须大于 0")
	ErrInvalidPaymentDetails    = errors.New("收款信息与提现方式不匹配")
	ErrInsufficientBalance      = errors.New("可提现余额不足")
	ErrReferralNotFound         = errors.New("推荐记录不存在")
	ErrReferralAlreadyConverted = errors.New("推荐记录已完成转化")
	ErrPaymentNotFound          = errors.New("提现申请不存在")
	ErrPaymentAlreadyResolved   = errors.New("提现申请已处理完毕")
	ErrInvalidPaymentStatus     = errors.New("终审状态必须为 approved 或 rejected")
)

// AffiliateService 推广返利业务接口
type AffiliateService interface {
	// IssueCode 为用户签发唯一推广码
	// 已签发时返回 (已有推广码, ErrCodeAlreadyIssued)，调用方可据此恢复
	IssueCode(ctx context.Context, userID string) (string, error)
	// GetStatus 推广人状态与统计
	GetStatus(ctx context.Context, userID string) (*dto.StatusResponse, error)
	// RegisterReferral 将 userID 登记为 referralCode 对应推广人的被推荐用户
	RegisterReferral(ctx context.Context, userID, referralCode string) (string, error)
	// GetHistory 推荐与提现历史（两个集合独立分页，倒序）
	GetHistory(ctx context.Context, userID string, req *dto.HistoryRequest) (*dto.HistoryData, error)
	// RequestPayment 申请提现：余额原子扣减 + 创建 pending 申请
	RequestPayment(ctx context.Context, userID string, req *dto.RequestPaymentRequest) (*model.Payment, error)
	// RecordConversion 登记推荐转化并按佣金比例计佣（后台/回调方调用）
	RecordConversion(ctx context.Context, referralID string, orderAmount decimal.Decimal) (decimal.Decimal, error)
	// ResolvePayment 终审提现申请：approved 到账外部处理；rejected 返还余额
	ResolvePayment(ctx context.Context, paymentID, status string) error
}

type affiliateService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAffiliateService 创建 AffiliateService 实例
func NewAffiliateService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) AffiliateService {
	return &affiliateService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── IssueCode ──────────────────────

func (s *affiliateService) IssueCode(ctx context.Context, userID string) (string, error) {
	// 1. 已签发则返回已有推广码（幂等读）
	existing, err := s.repo.Affiliate.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询推广人失败", zap.Error(err))
		return "", err
	}
	if existing != nil {
		return existing.Code, ErrCodeAlreadyIssued
	}

	// 2. 取前缀素材（展示名优先，缺失时回退邮箱）
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAffiliateNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return "", err
	}
	prefix := buildCodePrefix(user.Name, user.Email)

	// 3. 随机后缀冲突时重新生成，重试有限次
	rate := decimal.NewFromFloat(s.cfg.Affiliate.DefaultCommissionRate)
	for attempt := 0; attempt < s.cfg.Affiliate.CodeRetryAttempts; attempt++ {
		affiliate := &model.Affiliate{
			UserID:         userID,
			Code:           prefix + randomCodeSuffix(),
			IsActive:       true,
			CommissionRate: rate,
			Balance:        decimal.Zero,
			TotalEarned:    decimal.Zero,
		}

		err := s.repo.Affiliate.Create(ctx, affiliate)
		if err == nil {
			return affiliate.Code, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Error("创建推广人失败", zap.Error(err))
			return "", err
		}

		// 唯一约束冲突可能来自并发签发（user_id）而非推广码碰撞，需区分
		concurrent, gerr := s.repo.Affiliate.GetByUserID(ctx, userID)
		if gerr == nil {
			return concurrent.Code, ErrCodeAlreadyIssued
		}
		s.logger.Warn("推广码冲突，重新生成后缀",
			zap.Int("attempt", attempt+1),
			zap.String("user_id", userID),
		)
	}

	return "", ErrCodeGenerateExhausted
}

// buildCodePrefix 从展示名（或邮箱本地部分）取前 3 个字符
// 非字母替换为 X，不足 3 位补 X
func buildCodePrefix(name, email string) string {
	src := strings.TrimSpace(name)
	if src == "" {
		src = email
		if i := strings.IndexByte(src, '@'); i > 0 {
			src = src[:i]
		}
	}

	src = strings.ToUpper(src)
	prefix := make([]byte, 0, 3)
	for i := 0; i < len(src) && len(prefix) < 3; i++ {
		ch := src[i]
		if ch >= 'A' && ch <= 'Z' {
			prefix = append(prefix, ch)
		} else {
			prefix = append(prefix, 'X')
		}
	}
	for len(prefix) < 3 {
		prefix = append(prefix, 'X')
	}
	return string(prefix)
}

// randomCodeSuffix 取 UUID 前 4 个十六进制字符作为随机后缀
func randomCodeSuffix() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:4])
}

// ────────────────────── GetStatus ──────────────────────

func (s *affiliateService) GetStatus(ctx context.Context, userID string) (*dto.StatusResponse, error) {
	affiliate, err := s.repo.Affiliate.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		s.logger.Error("查询推广人失败", zap.Error(err))
		return nil, err
	}

	stats, err := s.repo.Referral.CountByAffiliate(ctx, affiliate.AffiliateID)
	if err != nil {
		s.logger.Error("统计推荐记录失败", zap.Error(err))
		return nil, err
	}

	pendingPayments, err := s.repo.Payment.CountPendingByAffiliate(ctx, affiliate.AffiliateID)
	if err != nil {
		s.logger.Error("统计待处理提现失败", zap.Error(err))
		return nil, err
	}

	// 无推荐时转化率为 0，避免除零
	var conversionRate float64
	if stats.Total > 0 {
		conversionRate = float64(stats.Converted) / float64(stats.Total) * 100
	}

	return &dto.StatusResponse{
		Code:           affiliate.Code,
		Active:         affiliate.IsActive,
		CommissionRate: affiliate.CommissionRate,
		Balance:        affiliate.Balance,
		TotalEarned:    affiliate.TotalEarned,
		Statistics: dto.StatisticsResponse{
			ReferralCount:       stats.Total,
			SuccessfulReferrals: stats.Converted,
			PendingPayments:     pendingPayments,
			ConversionRate:      conversionRate,
		},
	}, nil
}

// ────────────────────── RegisterReferral ──────────────────────

func (s *affiliateService) RegisterReferral(ctx context.Context, userID, referralCode string) (string, error) {
	if strings.TrimSpace(referralCode) == "" {
		return "", ErrInvalidReferralCode
	}

	// 1. 推广码必须存在且处于启用状态
	affiliate, err := s.repo.Affiliate.GetByCode(ctx, referralCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidReferralCode
		}
		s.logger.Error("查询推广码失败", zap.Error(err))
		return "", err
	}
	if !affiliate.IsActive {
		return "", ErrInvalidReferralCode
	}

	// 2. 禁止自我推荐
	if affiliate.UserID == userID {
		return "", ErrSelfReferral
	}

	// 3. 一个用户只能被推荐一次
	if _, err := s.repo.Referral.GetByReferredUserID(ctx, userID); err == nil {
		return "", ErrAlreadyReferred
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询推荐记录失败", zap.Error(err))
		return "", err
	}

	// 4. 写入；并发重复提交由 referred_user_id 唯一索引兜底
	referral := &model.Referral{
		AffiliateID:    affiliate.AffiliateID,
		ReferredUserID: userID,
		Status:         model.ReferralStatusPending,
	}
	if err := s.repo.Referral.Create(ctx, referral); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrAlreadyReferred
		}
		s.logger.Error("创建推荐记录失败", zap.Error(err))
		return "", err
	}

	return referral.ReferralID, nil
}

// ────────────────────── GetHistory ──────────────────────

func (s *affiliateService) GetHistory(ctx context.Context, userID string, req *dto.HistoryRequest) (*dto.HistoryData, error) {
	affiliate, err := s.repo.Affiliate.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		s.logger.Error("查询推广人失败", zap.Error(err))
		return nil, err
	}

	maxLimit := s.cfg.Affiliate.MaxPageSize
	offset := req.GetOffset(maxLimit)
	limit := req.GetLimit(maxLimit)

	referrals, referralTotal, err := s.repo.Referral.ListByAffiliate(ctx, affiliate.AffiliateID, offset, limit)
	if err != nil {
		s.logger.Error("查询推荐历史失败", zap.Error(err))
		return nil, err
	}

	payments, paymentTotal, err := s.repo.Payment.ListByAffiliate(ctx, affiliate.AffiliateID, offset, limit)
	if err != nil {
		s.logger.Error("查询提现历史失败", zap.Error(err))
		return nil, err
	}

	data := &dto.HistoryData{
		Referrals:     make([]dto.ReferralItemResponse, 0, len(referrals)),
		ReferralTotal: referralTotal,
		Payments:      make([]dto.PaymentItemResponse, 0, len(payments)),
		PaymentTotal:  paymentTotal,
		Page:          req.GetPage(),
		Limit:         limit,
	}

	for i := range referrals {
		item := dto.ReferralItemResponse{
			ID:           referrals[i].ReferralID,
			Status:       referrals[i].Status,
			ReferralDate: referrals[i].ReferralDate.Format("2006-01-02T15:04:05Z07:00"),
		}
		if u := referrals[i].ReferredUser; u != nil {
			item.UserName = u.Name
			item.UserEmail = u.Email
		}
		data.Referrals = append(data.Referrals, item)
	}

	for i := range payments {
		data.Payments = append(data.Payments, dto.PaymentItemResponse{
			ID:            payments[i].PaymentID,
			Amount:        payments[i].Amount,
			PaymentMethod: payments[i].PaymentMethod,
			Status:        payments[i].Status,
			CreatedAt:     payments[i].CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return data, nil
}

// ────────────────────── RequestPayment ──────────────────────

func (s *affiliateService) RequestPayment(ctx context.Context, userID string, req *dto.RequestPaymentRequest) (*model.Payment, error) {
	// 金额先归一到分再校验：0.004 之类的正数会四舍五入为 0，不得入库
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	details, err := marshalPaymentDetails(req)
	if err != nil {
		return nil, err
	}

	affiliate, err := s.repo.Affiliate.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		s.logger.Error("查询推广人失败", zap.Error(err))
		return nil, err
	}

	payment := &model.Payment{
		AffiliateID:    affiliate.AffiliateID,
		Amount:         amount,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: details,
		Status:         model.PaymentStatusPending,
	}

	// 扣减与落单必须在同一事务内：
	// 条件 UPDATE 未命中即余额不足，两笔并发申请不可能同时通过
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Affiliate.DebitBalance(ctx, affiliate.AffiliateID, amount); err != nil {
			if errors.Is(err, pkgerrors.ErrNoRowsAffected) {
				return ErrInsufficientBalance
			}
			return err
		}
		return txRepo.Payment.Create(ctx, payment)
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientBalance) {
			s.logger.Error("创建提现申请失败", zap.Error(err))
		}
		return nil, err
	}

	return payment, nil
}

// marshalPaymentDetails 按提现方式校验并序列化收款信息
func marshalPaymentDetails(req *dto.RequestPaymentRequest) (string, error) {
	var payload interface{}

	switch req.PaymentMethod {
	case model.PaymentMethodBankTransfer:
		if req.BankTransfer == nil {
			return "", ErrInvalidPaymentDetails
		}
		payload = req.BankTransfer
	case model.PaymentMethodWallet:
		if req.Wallet == nil {
			return "", ErrInvalidPaymentDetails
		}
		payload = req.Wallet
	default:
		return "", ErrInvalidPaymentDetails
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", ErrInvalidPaymentDetails
	}
	return string(raw), nil
}

// ────────────────────── RecordConversion ──────────────────────

func (s *affiliateService) RecordConversion(ctx context.Context, referralID string, orderAmount decimal.Decimal) (decimal.Decimal, error) {
	if !orderAmount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	referral, err := s.repo.Referral.GetByID(ctx, referralID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrReferralNotFound
		}
		s.logger.Error("查询推荐记录失败", zap.Error(err))
		return decimal.Zero, err
	}

	affiliate, err := s.repo.Affiliate.GetByID(ctx, referral.AffiliateID)
	if err != nil {
		s.logger.Error("查询推广人失败", zap.Error(err))
		return decimal.Zero, err
	}

	commission := orderAmount.Mul(affiliate.CommissionRate).Round(2)

	// 状态迁移与计佣同事务：条件 UPDATE 保证同一推荐至多计佣一次
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Referral.MarkConverted(ctx, referralID); err != nil {
			if errors.Is(err, pkgerrors.ErrNoRowsAffected) {
				return ErrReferralAlreadyConverted
			}
			return err
		}
		return txRepo.Affiliate.CreditEarnings(ctx, affiliate.AffiliateID, commission)
	})
	if err != nil {
		if !errors.Is(err, ErrReferralAlreadyConverted) {
			s.logger.Error("登记转化失败", zap.Error(err))
		}
		return decimal.Zero, err
	}

	s.logger.Info("推荐转化已计佣",
		zap.String("referral_id", referralID),
		zap.String("affiliate_id", affiliate.AffiliateID),
		zap.String("commission", commission.String()),
	)

	return commission, nil
}

// ────────────────────── ResolvePayment ──────────────────────

func (s *affiliateService) ResolvePayment(ctx context.Context, paymentID, status string) error {
	if status != model.PaymentStatusApproved && status != model.PaymentStatusRejected {
		return ErrInvalidPaymentStatus
	}

	payment, err := s.repo.Payment.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		s.logger.Error("查询提现申请失败", zap.Error(err))
		return err
	}

	// 终审与返还同事务；approved 的实际打款由外部财务流程处理
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Payment.MarkResolved(ctx, paymentID, status); err != nil {
			if errors.Is(err, pkgerrors.ErrNoRowsAffected) {
				return ErrPaymentAlreadyResolved
			}
			return err
		}
		if status == model.PaymentStatusRejected {
			return txRepo.Affiliate.RefundBalance(ctx, payment.AffiliateID, payment.Amount)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPaymentAlreadyResolved) {
			s.logger.Error("终审提现申请失败", zap.Error(err))
		}
		return err
	}

	return nil
}
