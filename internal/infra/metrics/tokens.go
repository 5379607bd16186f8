package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		tokensIssuedTotal,
		tokensRefreshedTotal,
		tokensRevokedTotal,
		tokenValidationsTotal,
	)
}

var (
	tokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "license_tokens_issued_total",
			Help: "Total number of license tokens minted.",
		},
	)

	tokensRefreshedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "license_tokens_refreshed_total",
			Help: "Total number of license token refreshes.",
		},
	)

	tokensRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "license_tokens_revoked_total",
			Help: "Total number of license tokens revoked.",
		},
	)

	tokenValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_token_validations_total",
			Help: "Token validation attempts by result.",
		},
		[]string{"result"}, // 'ok', 'signature', 'revoked', 'mismatch', 'inactive'
	)
)

func IncTokensIssued() { tokensIssuedTotal.Inc() }

func IncTokensRefreshed() { tokensRefreshedTotal.Inc() }

func AddTokensRevoked(count int) { tokensRevokedTotal.Add(float64(count)) }

func IncTokenValidation(result string) {
	tokenValidationsTotal.WithLabelValues(norm(result)).Inc()
}
