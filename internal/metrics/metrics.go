package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes the wallet transaction counters on a Prometheus registry.
// Counter increments never block and never fail the business operation.
type Recorder struct {
	registry *prometheus.Registry

	deposits  prometheus.Counter
	withdraws prometheus.Counter
	approved  prometheus.Counter
	pending   prometheus.Counter
}

// NewRecorder builds a recorder with its own registry, pre-registered with
// the standard Go runtime collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		deposits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_transactions_deposits_total",
			Help: "Total number of deposit transactions initiated.",
		}),
		withdraws: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_transactions_withdraws_total",
			Help: "Total number of withdraw transactions initiated.",
		}),
		approved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_transactions_approved_total",
			Help: "Total number of transactions created in approved status.",
		}),
		pending: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_transactions_pending_total",
			Help: "Total number of transactions created in pending status.",
		}),
	}
	registry.MustRegister(r.deposits, r.withdraws, r.approved, r.pending)
	return r
}

func (r *Recorder) DepositInitiated()    { r.deposits.Inc() }
func (r *Recorder) WithdrawInitiated()   { r.withdraws.Inc() }
func (r *Recorder) TransactionApproved() { r.approved.Inc() }
func (r *Recorder) TransactionPending()  { r.pending.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
