package common

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a Metrics value to Prometheus. Values are read from a
// snapshot at scrape time.
type Collector struct {
	m *Metrics

	bytes    *prometheus.Desc
	records  *prometheus.Desc
	data     *prometheus.Desc
	skipped  *prometheus.Desc
	decodes  *prometheus.Desc
	failures *prometheus.Desc
	duration *prometheus.Desc
}

func NewCollector(m *Metrics) *Collector {
	return &Collector{
		m: m,
		bytes: prometheus.NewDesc("ulogkit_bytes_decoded_total",
			"Bytes of ULog input consumed.", nil, nil),
		records: prometheus.NewDesc("ulogkit_records_total",
			"Records decoded, including skipped ones.", nil, nil),
		data: prometheus.NewDesc("ulogkit_data_records_total",
			"Data sample records decoded.", nil, nil),
		skipped: prometheus.NewDesc("ulogkit_records_skipped_total",
			"Unknown records skipped in tolerant mode.", nil, nil),
		decodes: prometheus.NewDesc("ulogkit_decodes_total",
			"Logs for which a decode finished.", nil, nil),
		failures: prometheus.NewDesc("ulogkit_decode_failures_total",
			"Logs whose decode returned an error.", nil, nil),
		duration: prometheus.NewDesc("ulogkit_run_duration_seconds",
			"Wall time since the run started.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytes
	ch <- c.records
	ch <- c.data
	ch <- c.skipped
	ch <- c.decodes
	ch <- c.failures
	ch <- c.duration
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.m.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue, float64(s.Bytes))
	ch <- prometheus.MustNewConstMetric(c.records, prometheus.CounterValue, float64(s.Records))
	ch <- prometheus.MustNewConstMetric(c.data, prometheus.CounterValue, float64(s.DataRecords))
	ch <- prometheus.MustNewConstMetric(c.skipped, prometheus.CounterValue, float64(s.Skipped))
	ch <- prometheus.MustNewConstMetric(c.decodes, prometheus.CounterValue, float64(s.Decodes))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures))
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.GaugeValue, s.Duration.Seconds())
}
