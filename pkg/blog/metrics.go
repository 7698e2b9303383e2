package blog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts blob store operations made by the service
type Metrics struct {
	storeOps *prometheus.CounterVec
	dropped  *prometheus.CounterVec
}

// NewMetrics creates the service collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Name:      "store_operations_total",
			Help:      "Blob store operations by operation and result.",
		}, []string{"op", "result"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Name:      "list_dropped_records_total",
			Help:      "Records left out of a listing because they could not be fetched or decoded.",
		}, []string{"kind"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.storeOps, m.dropped} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeStoreOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) observeDropped(kind string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(kind).Inc()
}
