// Package metrics holds the process-wide prometheus collectors, exposed by
// the web server at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ReportsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorhub_reports_emitted_total",
		Help: "Reports published to the configured outputs.",
	})
	AcquisitionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorhub_acquisition_errors_total",
		Help: "Failed acquisition passes (I2C transaction errors).",
	})
	PublishErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sensorhub_publish_errors_total",
		Help: "Failed report publishes per output.",
	}, []string{"output"})
	APIReads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sensorhub_api_reads_total",
		Help: "Fresh acquisition passes triggered by /api/sensors.",
	})
)

func init() {
	prometheus.MustRegister(ReportsEmitted, AcquisitionErrors, PublishErrors, APIReads)
}
