package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anipets12/abgwilson-sub001/internal/model"
	"github.com/anipets12/abgwilson-sub001/internal/repository"
	pkgerrors "github.com/anipets12/abgwilson-sub001/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // key: user_id
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Now()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock AffiliateRepository ──

// mockAffiliateRepo 带互斥锁：余额条件更新需在并发测试下保持原子
type mockAffiliateRepo struct {
	mu         sync.Mutex
	affiliates map[string]*model.Affiliate // key: affiliate_id
	seq        int
}

func newMockAffiliateRepo() *mockAffiliateRepo {
	return &mockAffiliateRepo{affiliates: make(map[string]*model.Affiliate)}
}

func (m *mockAffiliateRepo) Create(_ context.Context, affiliate *model.Affiliate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.affiliates {
		if a.UserID == affiliate.UserID || a.Code == affiliate.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if affiliate.AffiliateID == "" {
		m.seq++
		affiliate.AffiliateID = fmt.Sprintf("aff-%d", m.seq)
	}
	m.affiliates[affiliate.AffiliateID] = affiliate
	return nil
}

func (m *mockAffiliateRepo) GetByID(_ context.Context, id string) (*model.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.affiliates[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAffiliateRepo) GetByUserID(_ context.Context, userID string) (*model.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.affiliates {
		if a.UserID == userID {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAffiliateRepo) GetByCode(_ context.Context, code string) (*model.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.affiliates {
		if a.Code == code {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAffiliateRepo) DebitBalance(_ context.Context, affiliateID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.affiliates[affiliateID]
	if !ok || a.Balance.LessThan(amount) {
		return pkgerrors.ErrNoRowsAffected
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

func (m *mockAffiliateRepo) CreditEarnings(_ context.Context, affiliateID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.affiliates[affiliateID]
	if !ok {
		return pkgerrors.ErrNoRowsAffected
	}
	a.Balance = a.Balance.Add(amount)
	a.TotalEarned = a.TotalEarned.Add(amount)
	return nil
}

func (m *mockAffiliateRepo) RefundBalance(_ context.Context, affiliateID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.affiliates[affiliateID]
	if !ok {
		return pkgerrors.ErrNoRowsAffected
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// ── Mock ReferralRepository ──

type mockReferralRepo struct {
	mu        sync.Mutex
	referrals map[string]*model.Referral // key: referral_id
	users     *mockUserRepo              // 预加载 ReferredUser 用
	seq       int
}

func newMockReferralRepo(users *mockUserRepo) *mockReferralRepo {
	return &mockReferralRepo{referrals: make(map[string]*model.Referral), users: users}
}

func (m *mockReferralRepo) Create(_ context.Context, referral *model.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.referrals {
		if r.ReferredUserID == referral.ReferredUserID {
			return gorm.ErrDuplicatedKey
		}
	}
	m.seq++
	if referral.ReferralID == "" {
		referral.ReferralID = fmt.Sprintf("ref-%d", m.seq)
	}
	if referral.ReferralDate.IsZero() {
		referral.ReferralDate = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	}
	m.referrals[referral.ReferralID] = referral
	return nil
}

func (m *mockReferralRepo) GetByID(_ context.Context, id string) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.referrals[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReferralRepo) GetByReferredUserID(_ context.Context, userID string) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.referrals {
		if r.ReferredUserID == userID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReferralRepo) sortedByAffiliate(affiliateID string) []model.Referral {
	var all []model.Referral
	for _, r := range m.referrals {
		if r.AffiliateID != affiliateID {
			continue
		}
		item := *r
		if m.users != nil {
			if u, ok := m.users.users[r.ReferredUserID]; ok {
				item.ReferredUser = u
			}
		}
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ReferralDate.After(all[j].ReferralDate)
	})
	return all
}

func (m *mockReferralRepo) ListByAffiliate(_ context.Context, affiliateID string, offset, limit int) ([]model.Referral, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedByAffiliate(affiliateID)
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockReferralRepo) ListAllByAffiliate(_ context.Context, affiliateID string) ([]model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedByAffiliate(affiliateID), nil
}

func (m *mockReferralRepo) CountByAffiliate(_ context.Context, affiliateID string) (*repository.ReferralStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats repository.ReferralStats
	for _, r := range m.referrals {
		if r.AffiliateID != affiliateID {
			continue
		}
		stats.Total++
		if r.Status == model.ReferralStatusConverted {
			stats.Converted++
		}
	}
	return &stats, nil
}

func (m *mockReferralRepo) MarkConverted(_ context.Context, referralID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[referralID]
	if !ok || r.Status != model.ReferralStatusPending {
		return pkgerrors.ErrNoRowsAffected
	}
	now := time.Now()
	r.Status = model.ReferralStatusConverted
	r.ConvertedAt = &now
	return nil
}

// ── Mock PaymentRepository ──

type mockPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*model.Payment // key: payment_id
	seq      int
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[string]*model.Payment)}
}

func (m *mockPaymentRepo) Create(_ context.Context, payment *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if payment.PaymentID == "" {
		payment.PaymentID = fmt.Sprintf("pay-%d", m.seq)
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	}
	m.payments[payment.PaymentID] = payment
	return nil
}

func (m *mockPaymentRepo) GetByID(_ context.Context, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaymentRepo) ListByAffiliate(_ context.Context, affiliateID string, offset, limit int) ([]model.Payment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedByAffiliate(affiliateID)
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockPaymentRepo) ListAllByAffiliate(_ context.Context, affiliateID string) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedByAffiliate(affiliateID), nil
}

func (m *mockPaymentRepo) sortedByAffiliate(affiliateID string) []model.Payment {
	var all []model.Payment
	for _, p := range m.payments {
		if p.AffiliateID == affiliateID {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

func (m *mockPaymentRepo) CountPendingByAffiliate(_ context.Context, affiliateID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, p := range m.payments {
		if p.AffiliateID == affiliateID && p.Status == model.PaymentStatusPending {
			count++
		}
	}
	return count, nil
}

func (m *mockPaymentRepo) MarkResolved(_ context.Context, paymentID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.Status != model.PaymentStatusPending {
		return pkgerrors.ErrNoRowsAffected
	}
	now := time.Now()
	p.Status = status
	p.ResolvedAt = &now
	return nil
}

// ── Mock 聚合 ──

type mockRepos struct {
	repo      *repository.Repository
	user      *mockUserRepo
	affiliate *mockAffiliateRepo
	referral  *mockReferralRepo
	payment   *mockPaymentRepo
}

// newMockRepos 构造全 mock 的 Repository 聚合
// db 为 nil，Transaction 退化为直接执行 fn
func newMockRepos() *mockRepos {
	user := newMockUserRepo()
	affiliate := newMockAffiliateRepo()
	referral := newMockReferralRepo(user)
	payment := newMockPaymentRepo()
	return &mockRepos{
		repo: &repository.Repository{
			User:      user,
			Affiliate: affiliate,
			Referral:  referral,
			Payment:   payment,
		},
		user:      user,
		affiliate: affiliate,
		referral:  referral,
		payment:   payment,
	}
}
