package handler

import "github.com/anipets12/abgwilson-sub001/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	Affiliate *AffiliateHandler
	Admin     *AdminHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		Affiliate: NewAffiliateHandler(svc.Affiliate),
		Admin:     NewAdminHandler(svc.Affiliate, svc.Export),
	}
}
