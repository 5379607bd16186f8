//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/adapter"
	"pos-license-platform/internal/domain/ports/repository"
)

// =============================
// Repositories (in-memory)
// =============================

// ---- Merchant ----

type MockMerchantRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Merchant

	SaveFunc     func(ctx context.Context, tx repository.Tx, m *model.Merchant) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Merchant, error)
}

func NewMockMerchantRepo() *MockMerchantRepo {
	return &MockMerchantRepo{store: make(map[string]*model.Merchant)}
}

var _ repository.MerchantRepository = (*MockMerchantRepo)(nil)

func (m *MockMerchantRepo) Save(ctx context.Context, tx repository.Tx, mr *model.Merchant) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, mr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mr
	m.store[mr.ID] = &cp
	return nil
}

func (m *MockMerchantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Merchant, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	mr, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *mr
	return &cp, nil
}

func (m *MockMerchantRepo) MarkTrialUsed(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mr, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if mr.TrialUsed {
		return domain.ErrTrialAlreadyUsed
	}
	mr.TrialUsed = true
	return nil
}

func (m *MockMerchantRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.MerchantStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mr, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	mr.Status = status
	return nil
}

// ---- Plan ----

type MockPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error)
}

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{store: make(map[string]*model.Plan)}
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Plan
	for _, p := range m.store {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

// ---- Device ----

type MockDeviceRepo struct {
	mu   sync.RWMutex
	recs []*model.Device

	SaveFunc func(ctx context.Context, tx repository.Tx, d *model.Device) error
}

func NewMockDeviceRepo() *MockDeviceRepo { return &MockDeviceRepo{} }

var _ repository.DeviceRepository = (*MockDeviceRepo)(nil)

func (m *MockDeviceRepo) Save(ctx context.Context, tx repository.Tx, d *model.Device) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.recs {
		if rec.ID == d.ID {
			cp := *d
			m.recs[i] = &cp
			return nil
		}
	}
	cp := *d
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *MockDeviceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.recs {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockDeviceRepo) FindByUID(ctx context.Context, tx repository.Tx, merchantID, deviceUID string) (*model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.recs {
		if d.MerchantID == merchantID && d.DeviceUID == deviceUID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockDeviceRepo) ListActiveByMerchant(ctx context.Context, tx repository.Tx, merchantID string) ([]*model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Device
	for _, d := range m.recs {
		if d.MerchantID == merchantID && d.IsActive {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockDeviceRepo) FindLatestActiveByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		d := m.recs[i]
		if d.MerchantID == merchantID && d.IsActive {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockDeviceRepo) UpdateLastSeen(ctx context.Context, tx repository.Tx, id string, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.recs {
		if d.ID == id {
			at := seenAt
			d.LastSeenAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- Subscription ----

type MockSubscriptionRepo struct {
	mu   sync.RWMutex
	recs []*model.Subscription

	SaveFunc                  func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindCurrentByMerchantFunc func(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error)
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo { return &MockSubscriptionRepo{} }

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.recs {
		if rec.ID == s.ID {
			cp := *s
			m.recs[i] = &cp
			return nil
		}
	}
	cp := *s
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.recs {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindCurrentByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	if m.FindCurrentByMerchantFunc != nil {
		return m.FindCurrentByMerchantFunc(ctx, tx, merchantID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		s := m.recs[i]
		if s.MerchantID == merchantID && (s.IsPending() || s.IsActive()) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindLatestByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		if m.recs[i].MerchantID == merchantID {
			cp := *m.recs[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindLatestExpiredByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		s := m.recs[i]
		if s.MerchantID == merchantID && s.Status == model.SubscriptionStatusExpired {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindTrialByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		s := m.recs[i]
		if s.MerchantID == merchantID && s.IsTrial {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) ListExpiringWithin(ctx context.Context, tx repository.Tx, now time.Time, days int) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cut := now.AddDate(0, 0, days)
	var out []*model.Subscription
	for _, s := range m.recs {
		if s.IsTrial || !s.IsActive() || s.EndAt == nil {
			continue
		}
		if s.EndAt.After(now) && !s.EndAt.After(cut) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) ListOverdue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.recs {
		if !s.IsTrial && s.IsActive() && s.EndAt != nil && s.EndAt.Before(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) ListExpiredTrials(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.recs {
		if s.IsTrial && s.IsActive() && s.TrialEndAt != nil && s.TrialEndAt.Before(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) ListPaidByMerchant(ctx context.Context, tx repository.Tx, merchantID string) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for i := len(m.recs) - 1; i >= 0; i-- {
		s := m.recs[i]
		if s.MerchantID == merchantID && !s.IsTrial {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Invoice ----

type MockInvoiceRepo struct {
	mu   sync.RWMutex
	recs []*model.Invoice

	SaveFunc func(ctx context.Context, tx repository.Tx, inv *model.Invoice) error
}

func NewMockInvoiceRepo() *MockInvoiceRepo { return &MockInvoiceRepo{} }

var _ repository.InvoiceRepository = (*MockInvoiceRepo)(nil)

func (m *MockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, inv)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.recs {
		if rec.ID == inv.ID {
			cp := *inv
			m.recs[i] = &cp
			return nil
		}
	}
	cp := *inv
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *MockInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.recs {
		if inv.ID == id {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockInvoiceRepo) FindLatestByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		if m.recs[i].MerchantID == merchantID {
			cp := *m.recs[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockInvoiceRepo) CancelStaleByMerchant(ctx context.Context, tx repository.Tx, merchantID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inv := range m.recs {
		if inv.MerchantID == merchantID && inv.IsUnsettled() && inv.DueAt.Before(now) {
			inv.Status = model.InvoiceStatusCancelled
			n++
		}
	}
	return n, nil
}

func (m *MockInvoiceRepo) HasOpenByMerchant(ctx context.Context, tx repository.Tx, merchantID, excludeID string, now time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.recs {
		if inv.MerchantID == merchantID && inv.ID != excludeID && inv.IsOpen(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockInvoiceRepo) FindOpenBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, now time.Time) (*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		inv := m.recs[i]
		if inv.SubscriptionID == subscriptionID && inv.IsOpen(now) {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockInvoiceRepo) ListOverdue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Invoice
	for _, inv := range m.recs {
		if inv.IsUnsettled() && inv.DueAt.Before(now) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockInvoiceRepo) SumPaidBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (int64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	count := 0
	for _, inv := range m.recs {
		if inv.SubscriptionID == subscriptionID && inv.IsPaid() {
			total += inv.Amount
			count++
		}
	}
	return total, count, nil
}

// ---- Payment ----

type MockPaymentRepo struct {
	mu   sync.RWMutex
	recs []*model.Payment

	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Payment) error
}

func NewMockPaymentRepo() *MockPaymentRepo { return &MockPaymentRepo{} }

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *MockPaymentRepo) ListByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.recs {
		if p.InvoiceID == invoiceID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Payment confirmation ----

type MockConfirmationRepo struct {
	mu   sync.RWMutex
	recs []*model.PaymentConfirmation
}

func NewMockConfirmationRepo() *MockConfirmationRepo { return &MockConfirmationRepo{} }

var _ repository.PaymentConfirmationRepository = (*MockConfirmationRepo)(nil)

func (m *MockConfirmationRepo) Save(ctx context.Context, tx repository.Tx, c *model.PaymentConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.recs {
		if rec.ID == c.ID {
			cp := *c
			m.recs[i] = &cp
			return nil
		}
	}
	cp := *c
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *MockConfirmationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentConfirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.recs {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockConfirmationRepo) FindSubmittedByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) (*model.PaymentConfirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.recs {
		if c.InvoiceID == invoiceID && c.IsSubmitted() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockConfirmationRepo) ApproveAllSubmittedByInvoice(ctx context.Context, tx repository.Tx, invoiceID, adminNote string, reviewedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.recs {
		if c.InvoiceID == invoiceID && c.IsSubmitted() {
			at := reviewedAt
			c.Status = model.ConfirmationStatusApproved
			c.ReviewedAt = &at
			c.AdminNote = adminNote
			n++
		}
	}
	return n, nil
}

func (m *MockConfirmationRepo) ListByMerchant(ctx context.Context, tx repository.Tx, merchantID string) ([]*model.PaymentConfirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentConfirmation
	for i := len(m.recs) - 1; i >= 0; i-- {
		if m.recs[i].SubmittedBy == merchantID {
			cp := *m.recs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- License token ----

type MockTokenRepo struct {
	mu   sync.RWMutex
	recs []*model.LicenseToken

	SaveFunc func(ctx context.Context, tx repository.Tx, t *model.LicenseToken) error
}

func NewMockTokenRepo() *MockTokenRepo { return &MockTokenRepo{} }

var _ repository.LicenseTokenRepository = (*MockTokenRepo)(nil)

func (m *MockTokenRepo) Save(ctx context.Context, tx repository.Tx, t *model.LicenseToken) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.recs {
		if rec.ID == t.ID {
			cp := *t
			m.recs[i] = &cp
			return nil
		}
	}
	cp := *t
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *MockTokenRepo) FindLiveByDevice(ctx context.Context, tx repository.Tx, deviceID string, now time.Time) (*model.LicenseToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		t := m.recs[i]
		if t.DeviceID == deviceID && t.IsLive(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTokenRepo) FindLiveByDeviceAndHash(ctx context.Context, tx repository.Tx, deviceID, tokenHash string, now time.Time) (*model.LicenseToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.recs {
		if t.DeviceID == deviceID && t.TokenHash == tokenHash && t.IsLive(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTokenRepo) FindLatestByDeviceAndSubscription(ctx context.Context, tx repository.Tx, deviceID, subscriptionID string) (*model.LicenseToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		t := m.recs[i]
		if t.DeviceID == deviceID && t.SubscriptionID == subscriptionID && !t.IsRevoked() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTokenRepo) RevokeLiveByDevice(ctx context.Context, tx repository.Tx, deviceID string, revokedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.recs {
		if t.DeviceID == deviceID && t.IsLive(revokedAt) {
			at := revokedAt
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (m *MockTokenRepo) RevokeAllByMerchant(ctx context.Context, tx repository.Tx, merchantID string, revokedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.recs {
		if t.MerchantID == merchantID && !t.IsRevoked() {
			at := revokedAt
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (m *MockTokenRepo) RevokeAllBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, revokedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.recs {
		if t.SubscriptionID == subscriptionID && !t.IsRevoked() {
			at := revokedAt
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (m *MockTokenRepo) RevokeExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.recs {
		if !t.IsRevoked() && t.IsExpired(now) {
			at := now
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (m *MockTokenRepo) CountLiveByMerchant(ctx context.Context, tx repository.Tx, merchantID string, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.recs {
		if t.MerchantID == merchantID && t.IsLive(now) {
			n++
		}
	}
	return n, nil
}

// =============================
// Infra helpers for tests
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately with NoTX unless a test overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Fixed clock ----

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

var _ adapter.Clock = (*fixedClock)(nil)

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// ---- Audit sink ----

type MockAuditSink struct {
	mu     sync.Mutex
	Events []string
}

var _ adapter.AuditSink = (*MockAuditSink)(nil)

func (m *MockAuditSink) Record(ctx context.Context, event string, fields map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

func (m *MockAuditSink) Has(event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}

// ---- Evidence store ----

type MockEvidenceStore struct {
	mu    sync.Mutex
	Files map[string][]byte

	StoreFunc func(ctx context.Context, filename string, data []byte) (string, error)
}

func NewMockEvidenceStore() *MockEvidenceStore {
	return &MockEvidenceStore{Files: make(map[string][]byte)}
}

var _ adapter.EvidenceStore = (*MockEvidenceStore)(nil)

func (m *MockEvidenceStore) Store(ctx context.Context, filename string, data []byte) (string, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, filename, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := fmt.Sprintf("evidence/%s", filename)
	m.Files[path] = data
	return path, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
