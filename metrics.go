package agencykit

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports access decisions and store transactions to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	decisions  *prometheus.CounterVec
	writes     *prometheus.CounterVec
	txDuration *prometheus.HistogramVec

	tx txCounters
}

// NewMetrics creates the collectors and registers them with registerer.
// It panics if they are already registered.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agencykit_guard_decisions_total",
		Help: "Route guard decisions partitioned by check and outcome.",
	}, []string{"check", "outcome"})
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agencykit_writes_total",
		Help: "Gated writes partitioned by action, resource kind and audit outcome.",
	}, []string{"action", "kind", "outcome"})
	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agencykit_transaction_duration_seconds",
		Help:    "Duration in seconds of store transactions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	registerer.MustRegister(decisions, writes, txDuration)
	m := &Metrics{decisions: decisions, writes: writes, txDuration: txDuration}
	m.tx.reset()
	return m
}

// ObserveDecision counts one guard decision. check is a short label such
// as "view" or "task.update".
func (m *Metrics) ObserveDecision(check string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.decisions.WithLabelValues(check, outcome).Inc()
}

// ObserveWrite counts one gated write.
func (m *Metrics) ObserveWrite(action Action, kind ResourceKind, outcome AuditOutcome) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(string(action), string(kind), string(outcome)).Inc()
}

// ObserveTransaction records a finished transaction.
func (m *Metrics) ObserveTransaction(d time.Duration, success bool) {
	if m == nil {
		return
	}
	status := "committed"
	if !success {
		status = "rolled_back"
	}
	m.txDuration.WithLabelValues(status).Observe(d.Seconds())
	m.tx.record(d, success)
}

// TransactionMetrics provides transaction performance and failure statistics.
type TransactionMetrics struct {
	TotalTransactions      int64         `json:"total_transactions"`
	SuccessfulTransactions int64         `json:"successful_transactions"`
	FailedTransactions     int64         `json:"failed_transactions"`
	AverageDuration        time.Duration `json:"average_duration"`
	MaxDuration            time.Duration `json:"max_duration"`
	LastReset              time.Time     `json:"last_reset"`
}

// TransactionMetrics returns in-process totals since the last reset.
func (m *Metrics) TransactionMetrics() TransactionMetrics {
	if m == nil {
		return TransactionMetrics{}
	}
	return m.tx.snapshot()
}

// ResetTransactionMetrics clears the in-process totals. Prometheus
// collectors are cumulative and are not affected.
func (m *Metrics) ResetTransactionMetrics() {
	if m == nil {
		return
	}
	m.tx.reset()
}

// TransactionsHealthy reports whether failure rate stays under 5% and the
// average duration under a second. Fewer than 10 transactions is healthy.
func (m *Metrics) TransactionsHealthy() bool {
	tm := m.TransactionMetrics()
	if tm.TotalTransactions < 10 {
		return true
	}
	if float64(tm.FailedTransactions)/float64(tm.TotalTransactions) > 0.05 {
		return false
	}
	return tm.AverageDuration <= time.Second
}

type txCounters struct {
	total     atomic.Int64
	success   atomic.Int64
	failure   atomic.Int64
	totalNs   atomic.Int64
	maxNs     atomic.Int64
	lastReset atomic.Int64 // unix nanoseconds
}

func (c *txCounters) record(d time.Duration, success bool) {
	c.total.Add(1)
	c.totalNs.Add(int64(d))
	if success {
		c.success.Add(1)
	} else {
		c.failure.Add(1)
	}
	for {
		cur := c.maxNs.Load()
		if int64(d) <= cur || c.maxNs.CompareAndSwap(cur, int64(d)) {
			break
		}
	}
}

func (c *txCounters) snapshot() TransactionMetrics {
	total := c.total.Load()
	tm := TransactionMetrics{
		TotalTransactions:      total,
		SuccessfulTransactions: c.success.Load(),
		FailedTransactions:     c.failure.Load(),
		MaxDuration:            time.Duration(c.maxNs.Load()),
		LastReset:              time.Unix(0, c.lastReset.Load()),
	}
	if total > 0 {
		tm.AverageDuration = time.Duration(c.totalNs.Load() / total)
	}
	return tm
}

func (c *txCounters) reset() {
	c.total.Store(0)
	c.success.Store(0)
	c.failure.Store(0)
	c.totalNs.Store(0)
	c.maxNs.Store(0)
	c.lastReset.Store(time.Now().UnixNano())
}
