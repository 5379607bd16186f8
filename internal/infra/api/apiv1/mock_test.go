//go:build !integration

// File: internal/infra/api/apiv1/mock_test.go
package apiv1_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/repository"
)

// Lean in-memory repositories for routing tests. They share a single mutex;
// handler tests are sequential so contention is irrelevant.

type memStore struct {
	mu            sync.Mutex
	merchants     map[string]*model.Merchant
	plans         map[string]*model.Plan
	devices       []*model.Device
	subs          []*model.Subscription
	invoices      []*model.Invoice
	payments      []*model.Payment
	confirmations []*model.PaymentConfirmation
	tokens        []*model.LicenseToken
}

func newMemStore() *memStore {
	return &memStore{
		merchants: make(map[string]*model.Merchant),
		plans:     make(map[string]*model.Plan),
	}
}

// ---- Merchant ----

type memMerchantRepo struct{ s *memStore }

var _ repository.MerchantRepository = (*memMerchantRepo)(nil)

func (r *memMerchantRepo) Save(ctx context.Context, tx repository.Tx, m *model.Merchant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *m
	r.s.merchants[m.ID] = &cp
	return nil
}

func (r *memMerchantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Merchant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.merchants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMerchantRepo) MarkTrialUsed(ctx context.Context, tx repository.Tx, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.merchants[id]
	if !ok {
		return domain.ErrNotFound
	}
	if m.TrialUsed {
		return domain.ErrTrialAlreadyUsed
	}
	m.TrialUsed = true
	return nil
}

func (r *memMerchantRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.MerchantStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.merchants[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Status = status
	return nil
}

// ---- Plan ----

type memPlanRepo struct{ s *memStore }

var _ repository.PlanRepository = (*memPlanRepo)(nil)

func (r *memPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.plans[p.ID] = &cp
	return nil
}

func (r *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPlanRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.plans {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Plan
	for _, p := range r.s.plans {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

// ---- Device ----

type memDeviceRepo struct{ s *memStore }

var _ repository.DeviceRepository = (*memDeviceRepo)(nil)

func (r *memDeviceRepo) Save(ctx context.Context, tx repository.Tx, d *model.Device) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rec := range r.s.devices {
		if rec.ID == d.ID {
			cp := *d
			r.s.devices[i] = &cp
			return nil
		}
	}
	cp := *d
	r.s.devices = append(r.s.devices, &cp)
	return nil
}

func (r *memDeviceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.devices {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memDeviceRepo) FindByUID(ctx context.Context, tx repository.Tx, merchantID, deviceUID string) (*model.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.devices {
		if d.MerchantID == merchantID && d.DeviceUID == deviceUID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memDeviceRepo) ListActiveByMerchant(ctx context.Context, tx repository.Tx, merchantID string) ([]*model.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Device
	for _, d := range r.s.devices {
		if d.MerchantID == merchantID && d.IsActive {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memDeviceRepo) FindLatestActiveByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.devices) - 1; i >= 0; i-- {
		d := r.s.devices[i]
		if d.MerchantID == merchantID && d.IsActive {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memDeviceRepo) UpdateLastSeen(ctx context.Context, tx repository.Tx, id string, seenAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.devices {
		if d.ID == id {
			at := seenAt
			d.LastSeenAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- Subscription ----

type memSubscriptionRepo struct{ s *memStore }

var _ repository.SubscriptionRepository = (*memSubscriptionRepo)(nil)

func (r *memSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rec := range r.s.subs {
		if rec.ID == sub.ID {
			cp := *sub
			r.s.subs[i] = &cp
			return nil
		}
	}
	cp := *sub
	r.s.subs = append(r.s.subs, &cp)
	return nil
}

func (r *memSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.ID == id {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSubscriptionRepo) FindCurrentByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.subs) - 1; i >= 0; i-- {
		sub := r.s.subs[i]
		if sub.MerchantID == merchantID && (sub.IsPending() || sub.IsActive()) {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSubscriptionRepo) FindLatestByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.subs) - 1; i >= 0; i-- {
		if r.s.subs[i].MerchantID == merchantID {
			cp := *r.s.subs[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSubscriptionRepo) FindLatestExpiredByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.subs) - 1; i >= 0; i-- {
		sub := r.s.subs[i]
		if sub.MerchantID == merchantID && sub.Status == model.SubscriptionStatusExpired {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSubscriptionRepo) FindTrialByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.subs) - 1; i >= 0; i-- {
		sub := r.s.subs[i]
		if sub.MerchantID == merchantID && sub.IsTrial {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSubscriptionRepo) ListExpiringWithin(ctx context.Context, tx repository.Tx, now time.Time, days int) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cut := now.AddDate(0, 0, days)
	var out []*model.Subscription
	for _, sub := range r.s.subs {
		if sub.IsTrial || !sub.IsActive() || sub.EndAt == nil {
			continue
		}
		if sub.EndAt.After(now) && !sub.EndAt.After(cut) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubscriptionRepo) ListOverdue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.s.subs {
		if !sub.IsTrial && sub.IsActive() && sub.EndAt != nil && sub.EndAt.Before(now) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubscriptionRepo) ListExpiredTrials(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.s.subs {
		if sub.IsTrial && sub.IsActive() && sub.TrialEndAt != nil && sub.TrialEndAt.Before(now) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSubscriptionRepo) ListPaidByMerchant(ctx context.Context, tx repository.Tx, merchantID string) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for i := len(r.s.subs) - 1; i >= 0; i-- {
		sub := r.s.subs[i]
		if sub.MerchantID == merchantID && !sub.IsTrial {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Invoice ----

type memInvoiceRepo struct{ s *memStore }

var _ repository.InvoiceRepository = (*memInvoiceRepo)(nil)

func (r *memInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rec := range r.s.invoices {
		if rec.ID == inv.ID {
			cp := *inv
			r.s.invoices[i] = &cp
			return nil
		}
	}
	cp := *inv
	r.s.invoices = append(r.s.invoices, &cp)
	return nil
}

func (r *memInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.ID == id {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memInvoiceRepo) FindLatestByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.invoices) - 1; i >= 0; i-- {
		if r.s.invoices[i].MerchantID == merchantID {
			cp := *r.s.invoices[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memInvoiceRepo) CancelStaleByMerchant(ctx context.Context, tx repository.Tx, merchantID string, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, inv := range r.s.invoices {
		if inv.MerchantID == merchantID && inv.IsUnsettled() && inv.DueAt.Before(now) {
			inv.Status = model.InvoiceStatusCancelled
			n++
		}
	}
	return n, nil
}

func (r *memInvoiceRepo) HasOpenByMerchant(ctx context.Context, tx repository.Tx, merchantID, excludeID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.MerchantID == merchantID && inv.ID != excludeID && inv.IsOpen(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memInvoiceRepo) FindOpenBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, now time.Time) (*model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.invoices) - 1; i >= 0; i-- {
		inv := r.s.invoices[i]
		if inv.SubscriptionID == subscriptionID && inv.IsOpen(now) {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memInvoiceRepo) ListOverdue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range r.s.invoices {
		if inv.IsUnsettled() && inv.DueAt.Before(now) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memInvoiceRepo) SumPaidBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (int64, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	count := 0
	for _, inv := range r.s.invoices {
		if inv.SubscriptionID == subscriptionID && inv.IsPaid() {
			total += inv.Amount
			count++
		}
	}
	return total, count, nil
}

// ---- Payment ----

type memPaymentRepo struct{ s *memStore }

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

func (r *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.payments = append(r.s.payments, &cp)
	return nil
}

func (r *memPaymentRepo) ListByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if p.InvoiceID == invoiceID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Payment confirmation ----

type memConfirmationRepo struct{ s *memStore }

var _ repository.PaymentConfirmationRepository = (*memConfirmationRepo)(nil)

func (r *memConfirmationRepo) Save(ctx context.Context, tx repository.Tx, c *model.PaymentConfirmation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rec := range r.s.confirmations {
		if rec.ID == c.ID {
			cp := *c
			r.s.confirmations[i] = &cp
			return nil
		}
	}
	cp := *c
	r.s.confirmations = append(r.s.confirmations, &cp)
	return nil
}

func (r *memConfirmationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentConfirmation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.confirmations {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memConfirmationRepo) FindSubmittedByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) (*model.PaymentConfirmation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.confirmations {
		if c.InvoiceID == invoiceID && c.IsSubmitted() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memConfirmationRepo) ApproveAllSubmittedByInvoice(ctx context.Context, tx repository.Tx, invoiceID, adminNote string, reviewedAt time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, c := range r.s.confirmations {
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

func (r *memConfirmationRepo) ListByMerchant(ctx context.Context, tx repository.Tx, merchantID string) ([]*model.PaymentConfirmation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.PaymentConfirmation
	for i := len(r.s.confirmations) - 1; i >= 0; i-- {
		if r.s.confirmations[i].SubmittedBy == merchantID {
			cp := *r.s.confirmations[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- License token ----

type memTokenRepo struct{ s *memStore }

var _ repository.LicenseTokenRepository = (*memTokenRepo)(nil)

func (r *memTokenRepo) Save(ctx context.Context, tx repository.Tx, t *model.LicenseToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rec := range r.s.tokens {
		if rec.ID == t.ID {
			cp := *t
			r.s.tokens[i] = &cp
			return nil
		}
	}
	cp := *t
	r.s.tokens = append(r.s.tokens, &cp)
	return nil
}

func (r *memTokenRepo) FindLiveByDevice(ctx context.Context, tx repository.Tx, deviceID string, now time.Time) (*model.LicenseToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.tokens) - 1; i >= 0; i-- {
		t := r.s.tokens[i]
		if t.DeviceID == deviceID && t.IsLive(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memTokenRepo) FindLiveByDeviceAndHash(ctx context.Context, tx repository.Tx, deviceID, tokenHash string, now time.Time) (*model.LicenseToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.DeviceID == deviceID && t.TokenHash == tokenHash && t.IsLive(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memTokenRepo) FindLatestByDeviceAndSubscription(ctx context.Context, tx repository.Tx, deviceID, subscriptionID string) (*model.LicenseToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.tokens) - 1; i >= 0; i-- {
		t := r.s.tokens[i]
		if t.DeviceID == deviceID && t.SubscriptionID == subscriptionID && !t.IsRevoked() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memTokenRepo) RevokeLiveByDevice(ctx context.Context, tx repository.Tx, deviceID string, revokedAt time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tokens {
		if t.DeviceID == deviceID && t.IsLive(revokedAt) {
			at := revokedAt
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) RevokeAllByMerchant(ctx context.Context, tx repository.Tx, merchantID string, revokedAt time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tokens {
		if t.MerchantID == merchantID && !t.IsRevoked() {
			at := revokedAt
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) RevokeAllBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, revokedAt time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tokens {
		if t.SubscriptionID == subscriptionID && !t.IsRevoked() {
			at := revokedAt
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) RevokeExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tokens {
		if !t.IsRevoked() && t.IsExpired(now) {
			at := now
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) CountLiveByMerchant(ctx context.Context, tx repository.Tx, merchantID string, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tokens {
		if t.MerchantID == merchantID && t.IsLive(now) {
			n++
		}
	}
	return n, nil
}

// ---- Tx manager / clock / adapters ----

type noTxManager struct{}

var _ repository.TransactionManager = (*noTxManager)(nil)

func (noTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type nopAudit struct{}

func (nopAudit) Record(ctx context.Context, event string, fields map[string]any) {}

type memEvidence struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemEvidence() *memEvidence { return &memEvidence{files: make(map[string][]byte)} }

func (m *memEvidence) Store(ctx context.Context, filename string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := "evidence/" + filename
	m.files[path] = data
	return path, nil
}
