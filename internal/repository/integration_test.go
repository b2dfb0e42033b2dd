//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anipets12/abgwilson-sub001/internal/model"
	"github.com/anipets12/abgwilson-sub001/internal/repository"
	pkgerrors "github.com/anipets12/abgwilson-sub001/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=abgwilson password=abgwilson_password dbname=abgwilson_test sslmode=disable TimeZone=America/Guayaquil"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	err = testDB.AutoMigrate(
		&model.User{},
		&model.Affiliate{},
		&model.Referral{},
		&model.Payment{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupTestData 创建一名用户及其推广人记录，返回清理函数
func setupTestData(t *testing.T, balance decimal.Decimal) (*model.User, *model.Affiliate, func()) {
	t.Helper()
	ctx := context.Background()
	nano := time.Now().UnixNano()

	user := &model.User{
		Name:         "测试用户",
		Email:        fmt.Sprintf("test%d@abgwilson.ec", nano),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleClient,
	}
	if err := testDB.WithContext(ctx).Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	affiliate := &model.Affiliate{
		UserID:         user.UserID,
		Code:           fmt.Sprintf("TST%04X", nano%0x10000),
		IsActive:       true,
		CommissionRate: decimal.NewFromFloat(0.15),
		Balance:        balance,
		TotalEarned:    balance,
	}
	if err := testDB.WithContext(ctx).Create(affiliate).Error; err != nil {
		t.Fatalf("创建推广人失败: %v", err)
	}

	cleanup := func() {
		testDB.Where("affiliate_id = ?", affiliate.AffiliateID).Delete(&model.Payment{})
		testDB.Where("affiliate_id = ?", affiliate.AffiliateID).Delete(&model.Referral{})
		testDB.Where("affiliate_id = ?", affiliate.AffiliateID).Delete(&model.Affiliate{})
		testDB.Where("user_id = ?", user.UserID).Delete(&model.User{})
	}
	return user, affiliate, cleanup
}

func createReferredUser(t *testing.T, suffix string) (*model.User, func()) {
	t.Helper()
	user := &model.User{
		Name:         "被推荐用户",
		Email:        fmt.Sprintf("ref%d%s@abgwilson.ec", time.Now().UnixNano(), suffix),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleClient,
	}
	if err := testDB.Create(user).Error; err != nil {
		t.Fatalf("创建被推荐用户失败: %v", err)
	}
	return user, func() {
		testDB.Where("user_id = ?", user.UserID).Delete(&model.User{})
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 唯一约束
// ═══════════════════════════════════════════════════════════

func TestAffiliateRepo_UniqueUserID(t *testing.T) {
	_, affiliate, cleanup := setupTestData(t, decimal.Zero)
	defer cleanup()

	repo := repository.NewAffiliateRepo(testDB)
	dup := &model.Affiliate{
		UserID:         affiliate.UserID,
		Code:           affiliate.Code + "B",
		IsActive:       true,
		CommissionRate: decimal.NewFromFloat(0.15),
	}
	err := repo.Create(context.Background(), dup)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("同一用户重复签发应返回 ErrDuplicatedKey，实际: %v", err)
	}
}

func TestAffiliateRepo_UniqueCode(t *testing.T) {
	_, affiliate, cleanup := setupTestData(t, decimal.Zero)
	defer cleanup()
	other, cleanupUser := createReferredUser(t, "a")
	defer cleanupUser()

	repo := repository.NewAffiliateRepo(testDB)
	dup := &model.Affiliate{
		UserID:         other.UserID,
		Code:           affiliate.Code,
		IsActive:       true,
		CommissionRate: decimal.NewFromFloat(0.15),
	}
	err := repo.Create(context.Background(), dup)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("推广码碰撞应返回 ErrDuplicatedKey，实际: %v", err)
	}
	if err == nil {
		testDB.Where("affiliate_id = ?", dup.AffiliateID).Delete(&model.Affiliate{})
	}
}

func TestReferralRepo_UniqueReferredUser(t *testing.T) {
	_, affiliate, cleanup := setupTestData(t, decimal.Zero)
	defer cleanup()
	referred, cleanupUser := createReferredUser(t, "b")
	defer cleanupUser()

	repo := repository.NewReferralRepo(testDB)
	ctx := context.Background()

	first := &model.Referral{
		AffiliateID:    affiliate.AffiliateID,
		ReferredUserID: referred.UserID,
		Status:         model.ReferralStatusPending,
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("首次登记应成功: %v", err)
	}

	dup := &model.Referral{
		AffiliateID:    affiliate.AffiliateID,
		ReferredUserID: referred.UserID,
		Status:         model.ReferralStatusPending,
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("重复登记同一被推荐用户应返回 ErrDuplicatedKey，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 条件更新
// ═══════════════════════════════════════════════════════════

func TestAffiliateRepo_DebitBalance(t *testing.T) {
	_, affiliate, cleanup := setupTestData(t, decimal.NewFromInt(100))
	defer cleanup()

	repo := repository.NewAffiliateRepo(testDB)
	ctx := context.Background()

	if err := repo.DebitBalance(ctx, affiliate.AffiliateID, decimal.NewFromInt(30)); err != nil {
		t.Fatalf("余额充足时扣减应成功: %v", err)
	}

	got, err := repo.GetByID(ctx, affiliate.AffiliateID)
	if err != nil {
		t.Fatalf("查询推广人失败: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("期望余额 70，实际=%s", got.Balance)
	}

	// 余额不足：条件 UPDATE 未命中
	err = repo.DebitBalance(ctx, affiliate.AffiliateID, decimal.NewFromInt(1000))
	if !errors.Is(err, pkgerrors.ErrNoRowsAffected) {
		t.Errorf("余额不足应返回 ErrNoRowsAffected，实际: %v", err)
	}
}

func TestReferralRepo_MarkConverted_OnlyOnce(t *testing.T) {
	_, affiliate, cleanup := setupTestData(t, decimal.Zero)
	defer cleanup()
	referred, cleanupUser := createReferredUser(t, "c")
	defer cleanupUser()

	repo := repository.NewReferralRepo(testDB)
	ctx := context.Background()

	referral := &model.Referral{
		AffiliateID:    affiliate.AffiliateID,
		ReferredUserID: referred.UserID,
		Status:         model.ReferralStatusPending,
	}
	if err := repo.Create(ctx, referral); err != nil {
		t.Fatalf("登记推荐失败: %v", err)
	}

	if err := repo.MarkConverted(ctx, referral.ReferralID); err != nil {
		t.Fatalf("首次转化应成功: %v", err)
	}
	if err := repo.MarkConverted(ctx, referral.ReferralID); !errors.Is(err, pkgerrors.ErrNoRowsAffected) {
		t.Errorf("重复转化应返回 ErrNoRowsAffected，实际: %v", err)
	}

	got, _ := repo.GetByID(ctx, referral.ReferralID)
	if got.Status != model.ReferralStatusConverted {
		t.Errorf("期望状态 converted，实际=%s", got.Status)
	}
	if got.ConvertedAt == nil {
		t.Error("转化时间应被记录")
	}
}

func TestPaymentRepo_MarkResolved_OnlyOnce(t *testing.T) {
	_, affiliate, cleanup := setupTestData(t, decimal.Zero)
	defer cleanup()

	repo := repository.NewPaymentRepo(testDB)
	ctx := context.Background()

	payment := &model.Payment{
		AffiliateID:   affiliate.AffiliateID,
		Amount:        decimal.NewFromInt(40),
		PaymentMethod: model.PaymentMethodBankTransfer,
		Status:        model.PaymentStatusPending,
	}
	if err := repo.Create(ctx, payment); err != nil {
		t.Fatalf("创建提现申请失败: %v", err)
	}

	if err := repo.MarkResolved(ctx, payment.PaymentID, model.PaymentStatusRejected); err != nil {
		t.Fatalf("首次终审应成功: %v", err)
	}
	if err := repo.MarkResolved(ctx, payment.PaymentID, model.PaymentStatusApproved); !errors.Is(err, pkgerrors.ErrNoRowsAffected) {
		t.Errorf("终态后再终审应返回 ErrNoRowsAffected，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 事务回滚
// ═══════════════════════════════════════════════════════════

func TestRepository_TransactionRollback(t *testing.T) {
	_, affiliate, cleanup := setupTestData(t, decimal.NewFromInt(100))
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	rollbackErr := errors.New("强制回滚")
	err := repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Affiliate.DebitBalance(ctx, affiliate.AffiliateID, decimal.NewFromInt(30)); err != nil {
			return err
		}
		return rollbackErr
	})
	if !errors.Is(err, rollbackErr) {
		t.Fatalf("期望事务返回强制回滚错误，实际: %v", err)
	}

	got, err := repo.Affiliate.GetByID(ctx, affiliate.AffiliateID)
	if err != nil {
		t.Fatalf("查询推广人失败: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("回滚后余额应保持 100，实际=%s", got.Balance)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 分页与排序
// ═══════════════════════════════════════════════════════════

func TestReferralRepo_ListByAffiliate_Pagination(t *testing.T) {
	_, affiliate, cleanup := setupTestData(t, decimal.Zero)
	defer cleanup()

	repo := repository.NewReferralRepo(testDB)
	ctx := context.Background()

	var userCleanups []func()
	defer func() {
		for _, fn := range userCleanups {
			fn()
		}
	}()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		referred, fn := createReferredUser(t, fmt.Sprintf("p%d", i))
		userCleanups = append(userCleanups, fn)
		referral := &model.Referral{
			AffiliateID:    affiliate.AffiliateID,
			ReferredUserID: referred.UserID,
			Status:         model.ReferralStatusPending,
			ReferralDate:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, referral); err != nil {
			t.Fatalf("登记推荐失败: %v", err)
		}
	}

	page1, total, err := repo.ListByAffiliate(ctx, affiliate.AffiliateID, 0, 2)
	if err != nil {
		t.Fatalf("分页查询失败: %v", err)
	}
	if total != 5 {
		t.Errorf("期望总数 5，实际=%d", total)
	}
	if len(page1) != 2 {
		t.Fatalf("期望第一页 2 条，实际=%d", len(page1))
	}
	if !page1[0].ReferralDate.After(page1[1].ReferralDate) {
		t.Error("推荐历史应按时间倒序")
	}
	if page1[0].ReferredUser == nil {
		t.Error("应预加载被推荐用户")
	}
}
