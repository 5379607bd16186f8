//go:build !integration

package usecase_test

import (
	"testing"
	"time"

	"pos-license-platform/internal/config"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/usecase"
)

var testBase = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

// ucDeps wires every use case against the shared in-memory mocks so tests
// can drive cross-component flows (trial start minting tokens, payment
// approval activating subscriptions) end to end.
type ucDeps struct {
	merchants     *MockMerchantRepo
	plans         *MockPlanRepo
	devices       *MockDeviceRepo
	subs          *MockSubscriptionRepo
	invoices      *MockInvoiceRepo
	payments      *MockPaymentRepo
	confirmations *MockConfirmationRepo
	tokens        *MockTokenRepo
	tm            *MockTxManager
	clock         *fixedClock
	audit         *MockAuditSink
	evidence      *MockEvidenceStore

	licenseUC      usecase.LicenseUseCase
	trialUC        usecase.TrialUseCase
	checkoutUC     usecase.CheckoutUseCase
	paymentUC      usecase.PaymentUseCase
	renewalUC      usecase.RenewalUseCase
	subscriptionUC usecase.SubscriptionUseCase
}

func newUCDeps(t *testing.T) *ucDeps {
	t.Helper()
	logger := newTestLogger()
	d := &ucDeps{
		merchants:     NewMockMerchantRepo(),
		plans:         NewMockPlanRepo(),
		devices:       NewMockDeviceRepo(),
		subs:          NewMockSubscriptionRepo(),
		invoices:      NewMockInvoiceRepo(),
		payments:      NewMockPaymentRepo(),
		confirmations: NewMockConfirmationRepo(),
		tokens:        NewMockTokenRepo(),
		tm:            NewMockTxManager(),
		clock:         newFixedClock(testBase),
		audit:         &MockAuditSink{},
		evidence:      NewMockEvidenceStore(),
	}

	licUC, err := usecase.NewLicenseUseCase(
		d.merchants, d.devices, d.subs, d.tokens, d.plans,
		d.tm, d.clock, d.audit, "pos-license-platform", "test-secret", 30, logger,
	)
	if err != nil {
		t.Fatalf("NewLicenseUseCase: %v", err)
	}
	d.licenseUC = licUC
	d.trialUC = usecase.NewTrialUseCase(
		d.merchants, d.devices, d.subs, d.plans, licUC,
		d.tm, d.clock, d.audit, 14, logger,
	)
	d.checkoutUC = usecase.NewCheckoutUseCase(
		d.merchants, d.plans, d.devices, d.subs, d.invoices,
		d.tm, d.clock, d.audit,
		config.PaymentConfig{
			Bank: config.BankTransferConfig{AccountName: "PT POS", AccountNumber: "123456", BankName: "BCA"},
		},
		logger,
	)
	d.paymentUC = usecase.NewPaymentUseCase(
		d.merchants, d.plans, d.devices, d.subs, d.invoices,
		d.payments, d.confirmations, licUC, d.evidence,
		d.tm, d.clock, d.audit, logger,
	)
	d.renewalUC = usecase.NewRenewalUseCase(
		d.merchants, d.plans, d.subs, d.invoices, d.tokens,
		d.tm, d.clock, d.audit, logger,
	)
	d.subscriptionUC = usecase.NewSubscriptionUseCase(
		d.merchants, d.plans, d.devices, d.subs, d.invoices, d.tokens,
		d.clock, logger,
	)
	return d
}

func (d *ucDeps) seedMerchant(t *testing.T, id string) *model.Merchant {
	t.Helper()
	m := &model.Merchant{
		ID:        id,
		Name:      "Merchant " + id,
		Email:     id + "@example.com",
		Status:    model.MerchantStatusActive,
		CreatedAt: testBase,
	}
	if err := d.merchants.Save(nil, nil, m); err != nil {
		t.Fatalf("seed merchant: %v", err)
	}
	return m
}

func (d *ucDeps) seedPlan(t *testing.T, id string, price int64, durationDays, trialDays int) *model.Plan {
	t.Helper()
	p := &model.Plan{
		ID:           id,
		Name:         "Plan " + id,
		Code:         "PLAN-" + id,
		Price:        price,
		Currency:     "IDR",
		DurationDays: durationDays,
		TrialDays:    trialDays,
		IsActive:     true,
		CreatedAt:    testBase,
	}
	if err := d.plans.Save(nil, nil, p); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return p
}

func (d *ucDeps) seedDevice(t *testing.T, id, merchantID, uid string) *model.Device {
	t.Helper()
	dev, err := model.NewDevice(id, merchantID, uid, testBase)
	if err != nil {
		t.Fatalf("seed device: %v", err)
	}
	if err := d.devices.Save(nil, nil, dev); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	return dev
}

func (d *ucDeps) seedActiveSub(t *testing.T, id, merchantID, planID string, endAt time.Time) *model.Subscription {
	t.Helper()
	start := testBase.AddDate(0, 0, -30)
	s := &model.Subscription{
		ID:         id,
		MerchantID: merchantID,
		PlanID:     planID,
		Status:     model.SubscriptionStatusActive,
		StartAt:    &start,
		EndAt:      &endAt,
		CreatedAt:  start,
	}
	if err := d.subs.Save(nil, nil, s); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return s
}
