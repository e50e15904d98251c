package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts checkout starts and payment confirmations.
type CheckoutMetrics struct {
	started   prometheus.Counter
	confirmed *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_started_total",
		Help: "Payment preferences created for carts.",
	})
	confirmed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_payment_status_total",
		Help: "Payment notifications processed by resulting status.",
	}, []string{"status"})
	reg.MustRegister(started, confirmed)
	return &CheckoutMetrics{started: started, confirmed: confirmed}
}

func (c *CheckoutMetrics) IncStarted() {
	if c == nil || c.started == nil {
		return
	}
	c.started.Inc()
}

func (c *CheckoutMetrics) IncPaymentStatus(status string) {
	if c == nil || c.confirmed == nil {
		return
	}
	c.confirmed.WithLabelValues(normalizeLabel(status)).Inc()
}
