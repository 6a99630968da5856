package lsm

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"lsmkv/cache"
)

const metricsNamespace = "lsmkv"

type metrics struct {
	reg   prometheus.Registerer
	owned []prometheus.Collector
	err   error

	ops           *prometheus.CounterVec
	flushes       prometheus.Counter
	flushedBytes  prometheus.Counter
	compactions   *prometheus.CounterVec
	tables        *prometheus.GaugeVec
	memtableBytes prometheus.Gauge
}

// register adds c to the registerer. A collector already registered under the
// same descriptor, by an earlier store on a shared registerer, is reused.
func register[T prometheus.Collector](m *metrics, c T) T {
	if m.err != nil {
		return c
	}
	err := m.reg.Register(c)
	if err == nil {
		m.owned = append(m.owned, c)
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	m.err = errors.Wrap(err, "register metrics")
	return c
}

func newMetrics(reg prometheus.Registerer, c *cache.Cache) (*metrics, error) {
	m := &metrics{reg: reg}
	register(m, prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "value_cache_hits_total",
		Help:      "Table value lookups served from the value cache.",
	}, func() float64 { return float64(c.Hits()) }))
	register(m, prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "value_cache_misses_total",
		Help:      "Table value lookups that had to read the table file.",
	}, func() float64 { return float64(c.Misses()) }))

	m.ops = register(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "operations_total",
		Help:      "Store operations by type and result.",
	}, []string{"op", "result"}))
	m.flushes = register(m, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "memtable_flushes_total",
		Help:      "Memtables written to level 0.",
	}))
	m.flushedBytes = register(m, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "flushed_bytes_total",
		Help:      "Bytes written by memtable flushes.",
	}))
	m.compactions = register(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "compactions_total",
		Help:      "Compactions by source level.",
	}, []string{"level"}))
	m.tables = register(m, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "tables",
		Help:      "Tables per level.",
	}, []string{"level"}))
	m.memtableBytes = register(m, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "memtable_bytes",
		Help:      "Serialized size of the memtable.",
	}))
	if m.err != nil {
		m.unregister()
		return nil, m.err
	}
	return m, nil
}

// unregister removes the collectors this store registered, so the same
// registerer can serve a reopened store.
func (m *metrics) unregister() {
	for _, c := range m.owned {
		m.reg.Unregister(c)
	}
	m.owned = nil
}

func (m *metrics) op(op, result string) {
	m.ops.WithLabelValues(op, result).Inc()
}

func (m *metrics) setLevels(sizes []int) {
	m.tables.Reset()
	for level, n := range sizes {
		m.tables.WithLabelValues(strconv.Itoa(level)).Set(float64(n))
	}
}
