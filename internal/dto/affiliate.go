package dto

import "github.com/shopspring/decimal"

// ── 推广返利模块 DTO ──

// RegisterReferralRequest 登记推荐关系请求
type RegisterReferralRequest struct {
	ReferralCode string `json:"referralCode" binding:"required,max=32"`
}

// BankTransferDetails 银行转账收款信息
type BankTransferDetails struct {
	BankName      string `json:"bank_name"      binding:"required,max=100"`
	AccountName   string `json:"account_name"   binding:"required,max=100"`
	AccountNumber string `json:"account_number" binding:"required,max=34"`
}

// WalletDetails 电子钱包收款信息
type WalletDetails struct {
	Provider  string `json:"provider"   binding:"required,max=50"`
	AccountID string `json:"account_id" binding:"required,max=100"`
}

// RequestPaymentRequest 佣金提现申请
// paymentDetails 按 paymentMethod 分支校验（bank_transfer / wallet）
type RequestPaymentRequest struct {
	Amount         decimal.Decimal      `json:"amount"         binding:"required"`
	PaymentMethod  string               `json:"paymentMethod"  binding:"required,oneof=bank_transfer wallet"`
	BankTransfer   *BankTransferDetails `json:"bankTransfer"   binding:"omitempty"`
	Wallet         *WalletDetails       `json:"wallet"         binding:"omitempty"`
}

// HistoryRequest 推荐/提现历史查询参数
// page、limit 缺失或非法时取默认值 1/10；limit 上限由配置约束
type HistoryRequest struct {
	Page  int `form:"page"  binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// GetPage 获取页码（含默认值）
func (r *HistoryRequest) GetPage() int {
	if r.Page <= 0 {
		return 1
	}
	return r.Page
}

// GetLimit 获取每页数量（含默认值与上限）
func (r *HistoryRequest) GetLimit(max int) int {
	if r.Limit <= 0 {
		return 10
	}
	if max > 0 && r.Limit > max {
		return max
	}
	return r.Limit
}

// GetOffset 计算偏移量
func (r *HistoryRequest) GetOffset(max int) int {
	return (r.GetPage() - 1) * r.GetLimit(max)
}

// StatisticsResponse 推广统计
type StatisticsResponse struct {
	ReferralCount       int64   `json:"referralCount"`
	SuccessfulReferrals int64   `json:"successfulReferrals"`
	PendingPayments     int64   `json:"pendingPayments"`
	ConversionRate      float64 `json:"conversionRate"` // 百分比；无推荐时为 0
}

// StatusResponse 推广人状态响应
type StatusResponse struct {
	Code           string             `json:"code"`
	Active         bool               `json:"active"`
	CommissionRate decimal.Decimal    `json:"commissionRate"`
	Balance        decimal.Decimal    `json:"balance"`
	TotalEarned    decimal.Decimal    `json:"totalEarned"`
	Statistics     StatisticsResponse `json:"statistics"`
}

// ReferralItemResponse 推荐历史条目（含被推荐用户信息的只读投影）
type ReferralItemResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ReferralDate string `json:"referralDate"`
	UserName     string `json:"userName"`
	UserEmail    string `json:"userEmail"`
}

// PaymentItemResponse 提现历史条目
type PaymentItemResponse struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"createdAt"`
}

// HistoryData 历史查询结果（Service → Handler 中间载体）
type HistoryData struct {
	Referrals     []ReferralItemResponse
	ReferralTotal int64
	Payments      []PaymentItemResponse
	PaymentTotal  int64
	Page          int
	Limit         int
}

// ── 后台管理 DTO ──

// ConvertReferralRequest 推荐转化登记请求（后台/回调方）
type ConvertReferralRequest struct {
	OrderAmount decimal.Decimal `json:"order_amount" binding:"required"`
}

// ResolvePaymentRequest 提现申请终审请求
type ResolvePaymentRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}
