package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"iot-posture-monitor/internal/domain/posture"
)

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// DevicesTotal and the gauges below mirror the KPIs of the last dashboard refresh.
	DevicesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "iot_devices_total",
		Help: "Number of devices in the last evaluated set.",
	})
	DevicesVulnerable = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "iot_devices_vulnerable",
		Help: "Devices with a weak password or outdated firmware.",
	})
	DevicesOutdated = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "iot_devices_outdated",
		Help: "Devices whose firmware differs from the reference version.",
	})
	AlertsToday = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "iot_alerts_today",
		Help: "Vulnerable plus stale devices in the last evaluated set.",
	})

	// HeartbeatsTotal counts heartbeats by source (http, mqtt) and result.
	HeartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iot_heartbeats_total",
			Help: "Device heartbeats received.",
		},
		[]string{"source", "result"},
	)

	FirmwareUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iot_firmware_updates_total",
		Help: "Firmware versions written to the device store.",
	})

	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iot_reports_total",
			Help: "Security reports generated.",
		},
		[]string{"status"}, // success/failed
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iot_http_requests_total",
			Help: "HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iot_http_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		DevicesTotal,
		DevicesVulnerable,
		DevicesOutdated,
		AlertsToday,
		HeartbeatsTotal,
		FirmwareUpdatesTotal,
		ReportsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ObserveSummary publishes a KPI summary on the device gauges.
func ObserveSummary(s posture.Summary) {
	DevicesTotal.Set(float64(s.Total))
	DevicesVulnerable.Set(float64(s.Vulnerable))
	DevicesOutdated.Set(float64(s.Outdated))
	AlertsToday.Set(float64(s.AlertsToday))
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
