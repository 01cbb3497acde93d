// Package prioqmetrics adapts a prioq.Queue's Stats into a
// prometheus.Collector, so an application that already exports a
// client_golang registry gets queue throughput and reclamation pressure
// for free instead of having to poll Stats itself.
package prioqmetrics

import "github.com/prometheus/client_golang/prometheus"

// Stats mirrors prioq.Stats' fields. prioq.Queue is generic over the
// queue's key and value types, which a prometheus.Collector has no use
// for, so callers adapt with a closure (see New) rather than this package
// importing prioq and inheriting its type parameters.
type Stats struct {
	Inserts        uint64
	Deletes        uint64
	Removes        uint64
	Restructurings uint64
	Retired        uint64
}

// Collector implements prometheus.Collector by polling a snapshot function
// on every Collect. Register it once per queue instance.
type Collector struct {
	snapshot func() Stats

	inserts        *prometheus.Desc
	deletes        *prometheus.Desc
	removes        *prometheus.Desc
	restructurings *prometheus.Desc
	retired        *prometheus.Desc
}

// New builds a Collector that calls snapshot on every Collect. A typical
// caller wraps a *prioq.Queue[K, V]:
//
//	c := prioqmetrics.New("myapp", "eventq", func() prioqmetrics.Stats {
//		s := q.Stats()
//		return prioqmetrics.Stats{
//			Inserts: s.Inserts, Deletes: s.Deletes, Removes: s.Removes,
//			Restructurings: s.Restructurings, Retired: s.Retired,
//		}
//	})
//
// namespace/subsystem follow the usual client_golang convention and may be
// empty.
func New(namespace, subsystem string, snapshot func() Stats) *Collector {
	label := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, name),
			help, nil, nil,
		)
	}
	return &Collector{
		snapshot:       snapshot,
		inserts:        label("inserts_total", "Total Insert calls that linked a node."),
		deletes:        label("deletes_total", "Total DeleteMin calls that claimed a node."),
		removes:        label("removes_total", "Total Remove calls that claimed a node."),
		restructurings: label("restructurings_total", "Total head-swing restructuring rounds."),
		retired:        label("nodes_retired_total", "Total nodes handed to the reclamation domain."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inserts
	ch <- c.deletes
	ch <- c.removes
	ch <- c.restructurings
	ch <- c.retired
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	ch <- prometheus.MustNewConstMetric(c.inserts, prometheus.CounterValue, float64(s.Inserts))
	ch <- prometheus.MustNewConstMetric(c.deletes, prometheus.CounterValue, float64(s.Deletes))
	ch <- prometheus.MustNewConstMetric(c.removes, prometheus.CounterValue, float64(s.Removes))
	ch <- prometheus.MustNewConstMetric(c.restructurings, prometheus.CounterValue, float64(s.Restructurings))
	ch <- prometheus.MustNewConstMetric(c.retired, prometheus.CounterValue, float64(s.Retired))
}
