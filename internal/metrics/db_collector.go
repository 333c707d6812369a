package metrics

import "github.com/prometheus/client_golang/prometheus"

// DBPoolStatFunc reports connection pool statistics.
type DBPoolStatFunc func() (total, idle, acquired int32)

type dbPoolCollector struct {
	statFunc DBPoolStatFunc
	descs    [3]*prometheus.Desc
}

// NewDBPoolCollector exposes pool statistics as gauges read at scrape time.
func NewDBPoolCollector(statFunc DBPoolStatFunc) prometheus.Collector {
	return &dbPoolCollector{
		statFunc: statFunc,
		descs: [3]*prometheus.Desc{
			prometheus.NewDesc("portal_db_pool_total_conns", "Total number of connections in the DB pool.", nil, nil),
			prometheus.NewDesc("portal_db_pool_idle_conns", "Number of idle connections in the DB pool.", nil, nil),
			prometheus.NewDesc("portal_db_pool_acquired_conns", "Number of acquired connections in the DB pool.", nil, nil),
		},
	}
}

func (c *dbPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *dbPoolCollector) Collect(ch chan<- prometheus.Metric) {
	total, idle, acquired := c.statFunc()
	for i, v := range []int32{total, idle, acquired} {
		ch <- prometheus.MustNewConstMetric(c.descs[i], prometheus.GaugeValue, float64(v))
	}
}
