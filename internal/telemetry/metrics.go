package telemetry

import "github.com/prometheus/client_golang/prometheus"

// MetricsSet is the fixed collection of counters the agent runtime
// registers against one prometheus.Registerer, grounded on the teacher's
// metrics.Metrics/Registry registration pattern but wiring real
// prometheus collectors directly rather than the teacher's in-memory
// stand-ins.
type MetricsSet struct {
	PhasesEntered      *prometheus.CounterVec
	FastPathHits       prometheus.Counter
	GuardDenials       *prometheus.CounterVec
	ReceiptsIssued     prometheus.Counter
	SyncRounds         *prometheus.CounterVec
	ByzantineSuspects  prometheus.Counter
}

// NewMetricsSet creates and registers every metric against reg. A
// registration conflict (the same metric names registered twice against
// the same registerer) is returned as an error rather than panicking.
func NewMetricsSet(reg prometheus.Registerer) (*MetricsSet, error) {
	m := &MetricsSet{
		PhasesEntered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aura",
			Name:      "consensus_phases_entered_total",
			Help:      "Number of times each consensus phase was entered.",
		}, []string{"phase"}),
		FastPathHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aura",
			Name:      "consensus_fast_path_hits_total",
			Help:      "Number of rounds that finalized via the fast path.",
		}),
		GuardDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aura",
			Name:      "guard_denials_total",
			Help:      "Number of sends rejected by a guard in the policy chain, by guard name.",
		}, []string{"guard"}),
		ReceiptsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aura",
			Name:      "receipts_issued_total",
			Help:      "Number of signed receipts issued.",
		}),
		SyncRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aura",
			Name:      "sync_rounds_total",
			Help:      "Number of anti-entropy sync rounds run, by outcome.",
		}, []string{"outcome"}),
		ByzantineSuspects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aura",
			Name:      "byzantine_suspects_total",
			Help:      "Number of byzantine mismatches recorded during sync or consensus.",
		}),
	}

	collectors := []prometheus.Collector{
		m.PhasesEntered, m.FastPathHits, m.GuardDenials,
		m.ReceiptsIssued, m.SyncRounds, m.ByzantineSuspects,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
