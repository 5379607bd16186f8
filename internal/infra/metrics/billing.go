package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		invoicesCreatedTotal,
		invoicesPaidTotal,
		invoicesRevenueTotal,
	)
}

var (
	invoicesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_created_total",
			Help: "Total number of invoices opened by checkout and renewal.",
		},
	)

	invoicesPaidTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_paid_total",
			Help: "Total number of invoices settled.",
		},
	)

	invoicesRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoices_revenue_total",
			Help: "The total monetary value of paid invoices, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncInvoicesCreated() { invoicesCreatedTotal.Inc() }

func IncInvoicesPaid() { invoicesPaidTotal.Inc() }

func AddInvoiceRevenue(currency string, amount int64) {
	invoicesRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
