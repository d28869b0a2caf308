package api

import (
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	exportValueDesc = prometheus.NewDesc(
		"wifi_export_value",
		"Flattened statistic of the latest run.",
		[]string{"run", "key"}, nil,
	)
	reportMetricDesc = prometheus.NewDesc(
		"wifi_report_metric",
		"Derived metric of the latest run. Metrics without data are omitted.",
		[]string{"run", "metric"}, nil,
	)
)

// resultCollector exposes the latest result as gauges.
type resultCollector struct {
	latest func() *model.Result
}

func (c *resultCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- exportValueDesc
	ch <- reportMetricDesc
}

func (c *resultCollector) Collect(ch chan<- prometheus.Metric) {
	res := c.latest()
	if res == nil {
		return
	}

	if res.Export != nil {
		for _, k := range res.Export.Keys() {
			ch <- prometheus.MustNewConstMetric(exportValueDesc, prometheus.GaugeValue, res.Export.Get(k), res.RunID, k)
		}
	}
	if res.Report != nil {
		for _, row := range res.Report.Rows() {
			if !row.Value.OK {
				continue
			}
			ch <- prometheus.MustNewConstMetric(reportMetricDesc, prometheus.GaugeValue, row.Value.V, res.RunID, row.Key)
		}
	}
}
