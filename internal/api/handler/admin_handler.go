package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anipets12/abgwilson-sub001/internal/dto"
	"github.com/anipets12/abgwilson-sub001/internal/service"
	"github.com/anipets12/abgwilson-sub001/pkg/response"
)

// AdminHandler 后台管理 HTTP 处理器
// 承接两类外部协作方操作：推荐转化登记（回调方）与提现终审（财务）
type AdminHandler struct {
	affiliateSvc service.AffiliateService
	exportSvc    service.ExportService
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(affiliateSvc service.AffiliateService, exportSvc service.ExportService) *AdminHandler {
	return &AdminHandler{affiliateSvc: affiliateSvc, exportSvc: exportSvc}
}

// ConvertReferral 登记推荐转化并计佣
// POST /api/v1/admin/referrals/:id/convert
func (h *AdminHandler) ConvertReferral(c *gin.Context) {
	referralID := c.Param("id")

	var req dto.ConvertReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "缺少订单金额")
		return
	}

	commission, err := h.affiliateSvc.RecordConversion(c.Request.Context(), referralID, req.OrderAmount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			response.BadRequest(c, "金额必须大于 0")
		case errors.Is(err, service.ErrReferralNotFound):
			response.NotFound(c, "推荐记录不存在")
		case errors.Is(err, service.ErrReferralAlreadyConverted):
			response.BadRequest(c, "推荐记录已完成转化")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.OK(c, gin.H{"commission": commission})
}

// ResolvePayment 终审提现申请
// PUT /api/v1/admin/payments/:id
func (h *AdminHandler) ResolvePayment(c *gin.Context) {
	paymentID := c.Param("id")

	var req dto.ResolvePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "状态必须为 approved 或 rejected")
		return
	}

	if err := h.affiliateSvc.ResolvePayment(c.Request.Context(), paymentID, req.Status); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPaymentStatus):
			response.BadRequest(c, "状态必须为 approved 或 rejected")
		case errors.Is(err, service.ErrPaymentNotFound):
			response.NotFound(c, "提现申请不存在")
		case errors.Is(err, service.ErrPaymentAlreadyResolved):
			response.BadRequest(c, "提现申请已处理完毕")
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.OK(c, gin.H{"paymentId": paymentID, "status": req.Status})
}

// ExportAffiliateHistory 导出推广人历史
// GET /api/v1/admin/affiliates/:id/export
func (h *AdminHandler) ExportAffiliateHistory(c *gin.Context) {
	affiliateID := c.Param("id")

	buf, filename, err := h.exportSvc.ExportAffiliateHistory(c.Request.Context(), affiliateID)
	if err != nil {
		if errors.Is(err, service.ErrExportAffiliateNotFound) {
			response.NotFound(c, "推广人不存在")
			return
		}
		response.InternalError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes(),
	)
}
