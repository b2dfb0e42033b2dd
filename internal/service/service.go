package service

import (
	"go.uber.org/zap"

	"github.com/anipets12/abgwilson-sub001/config"
	"github.com/anipets12/abgwilson-sub001/internal/repository"
	"github.com/anipets12/abgwilson-sub001/pkg/jwt"
	"github.com/anipets12/abgwilson-sub001/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth      AuthService
	Affiliate AffiliateService
	Export    ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	affiliateSvc := NewAffiliateService(cfg, repo, logger)
	return &Service{
		Auth:      NewAuthService(cfg, repo, jwtMgr, rdb, affiliateSvc, logger),
		Affiliate: affiliateSvc,
		Export:    NewExportService(repo, logger),
	}
}
