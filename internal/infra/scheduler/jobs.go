// File: internal/infra/scheduler/jobs.go
package scheduler

import (
	"context"

	"pos-license-platform/internal/config"
	"pos-license-platform/internal/usecase"
)

// Jobs builds the standard maintenance job list from the configured
// cadences. The caller registers the returned jobs; tests can register a
// subset or substitute their own.
func Jobs(cfg config.SchedulerConfig, renewals usecase.RenewalUseCase, trials usecase.TrialUseCase, licenses usecase.LicenseUseCase) []Job {
	return []Job{
		{
			Name: "expire-overdue-subscriptions",
			Spec: cfg.ExpireSubscriptionsCron,
			Run:  renewals.ExpireOverdueSubscriptions,
		},
		{
			Name: "expire-overdue-invoices",
			Spec: cfg.OverdueInvoicesCron,
			Run:  renewals.ExpireOverdueInvoices,
		},
		{
			Name: "generate-renewal-invoices",
			Spec: cfg.RenewalInvoicesCron,
			Run: func(ctx context.Context) (int, error) {
				return renewals.GenerateRenewalInvoices(ctx, cfg.RenewalLeadDays)
			},
		},
		{
			Name: "expire-trials",
			Spec: cfg.ExpireTrialsCron,
			Run:  trials.BulkExpireTrials,
		},
		{
			Name: "cleanup-expired-tokens",
			Spec: cfg.TokenCleanupCron,
			Run:  licenses.CleanupExpiredTokens,
		},
	}
}
