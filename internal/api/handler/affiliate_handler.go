package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anipets12/abgwilson-sub001/internal/dto"
	"github.com/anipets12/abgwilson-sub001/internal/service"
	"github.com/anipets12/abgwilson-sub001/pkg/response"
)

// AffiliateHandler 推广返利模块 HTTP 处理器
type AffiliateHandler struct {
	affiliateSvc service.AffiliateService
}

// NewAffiliateHandler 创建 AffiliateHandler
func NewAffiliateHandler(affiliateSvc service.AffiliateService) *AffiliateHandler {
	return &AffiliateHandler{affiliateSvc: affiliateSvc}
}

// GenerateCode 签发推广码
// POST /api/v1/affiliates/generate-code
func (h *AffiliateHandler) GenerateCode(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	code, err := h.affiliateSvc.IssueCode(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeAlreadyIssued):
			// 已签发时附带原推广码，客户端可直接恢复
			response.BadRequestWith(c, "推广码已签发", gin.H{"code": code})
		case errors.Is(err, service.ErrAffiliateNotFound):
			response.NotFound(c, "用户不存在")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.Created(c, gin.H{"code": code})
}

// GetStatus 推广人状态与统计
// GET /api/v1/affiliates/status
func (h *AffiliateHandler) GetStatus(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	status, err := h.affiliateSvc.GetStatus(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			response.NotFound(c, "尚未开通推广资格")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{
		"isAffiliate":    true,
		"code":           status.Code,
		"active":         status.Active,
		"commissionRate": status.CommissionRate,
		"balance":        status.Balance,
		"totalEarned":    status.TotalEarned,
		"statistics":     status.Statistics,
	})
}

// RegisterReferral 登记推荐关系
// POST /api/v1/affiliates/register-referral
func (h *AffiliateHandler) RegisterReferral(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RegisterReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "缺少推广码")
		return
	}

	referralID, err := h.affiliateSvc.RegisterReferral(c.Request.Context(), userID, req.ReferralCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidReferralCode):
			response.NotFound(c, "推广码无效或已停用")
		case errors.Is(err, service.ErrSelfReferral):
			response.BadRequest(c, "不能使用本人的推广码")
		case errors.Is(err, service.ErrAlreadyReferred):
			response.BadRequest(c, "该用户已被推荐过")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.Created(c, gin.H{"referralId": referralID})
}

// GetHistory 推荐与提现历史
// GET /api/v1/affiliates/history?page&limit
func (h *AffiliateHandler) GetHistory(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	// 分页参数逐项解析：单个参数非法时仅该参数回退默认值，不影响另一个
	var req dto.HistoryRequest
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		req.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		req.Limit = limit
	}

	data, err := h.affiliateSvc.GetHistory(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			response.NotFound(c, "尚未开通推广资格")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{
		"referrals": response.NewPage(data.Referrals, data.ReferralTotal, data.Page, data.Limit),
		"payments":  response.NewPage(data.Payments, data.PaymentTotal, data.Page, data.Limit),
	})
}

// RequestPayment 申请佣金提现
// POST /api/v1/affiliates/request-payment
func (h *AffiliateHandler) RequestPayment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RequestPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "缺少金额或提现方式")
		return
	}

	payment, err := h.affiliateSvc.RequestPayment(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			response.BadRequest(c, "金额必须大于 0")
		case errors.Is(err, service.ErrInvalidPaymentDetails):
			response.BadRequest(c, "收款信息与提现方式不匹配")
		case errors.Is(err, service.ErrInsufficientBalance):
			response.BadRequest(c, "可提现余额不足")
		case errors.Is(err, service.ErrAffiliateNotFound):
			response.NotFound(c, "尚未开通推广资格")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.Created(c, gin.H{
		"paymentId": payment.PaymentID,
		"status":    payment.Status,
	})
}
