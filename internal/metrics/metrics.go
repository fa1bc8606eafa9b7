// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exports bus statistics and polled register values to
// Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

const namespace = "bearbus"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// StatsCollector exports a bear.Statistics snapshot on every scrape.
type StatsCollector struct {
	stats *bear.Statistics

	exchanges     *prometheus.Desc
	responses     *prometheus.Desc
	broadcasts    *prometheus.Desc
	transmissions *prometheus.Desc
	retries       *prometheus.Desc
	errors        *prometheus.Desc
	bytes         *prometheus.Desc
}

// NewStatsCollector creates a collector for stats.
func NewStatsCollector(stats *bear.Statistics) *StatsCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &StatsCollector{
		stats:         stats,
		exchanges:     desc("exchanges_total", "Client operations started."),
		responses:     desc("responses_total", "Exchanges answered with a valid response."),
		broadcasts:    desc("broadcasts_total", "Broadcast writes sent."),
		transmissions: desc("transmissions_total", "Request packets written, retries included."),
		retries:       desc("retries_total", "Request packets re-sent after a transient failure."),
		errors:        desc("errors_total", "Failed attempts by kind.", "kind"),
		bytes:         desc("bytes_total", "Bus bytes by direction.", "direction"),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.exchanges
	ch <- c.responses
	ch <- c.broadcasts
	ch <- c.transmissions
	ch <- c.retries
	ch <- c.errors
	ch <- c.bytes
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Snapshot()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.exchanges, s.Exchanges)
	counter(c.responses, s.Responses)
	counter(c.broadcasts, s.Broadcasts)
	counter(c.transmissions, s.Transmissions)
	counter(c.retries, s.Retries)

	counter(c.errors, s.Timeouts, "timeout")
	counter(c.errors, s.ChecksumErrors, "checksum")
	counter(c.errors, s.FramingErrors, "framing")
	counter(c.errors, s.IDMismatches, "id_mismatch")
	counter(c.errors, s.DeviceErrors, "device")
	counter(c.errors, s.ProtocolErrors, "protocol")
	counter(c.errors, s.TransportErrors, "transport")
	counter(c.errors, s.InvalidArguments, "invalid_argument")

	counter(c.bytes, s.BytesSent, "sent")
	counter(c.bytes, s.BytesReceived, "received")
	counter(c.bytes, s.SkippedBytes, "skipped")
}

// PollMetrics holds the gauges updated by the poll command.
type PollMetrics struct {
	Value    *prometheus.GaugeVec // labels: id, register
	Status   *prometheus.GaugeVec // labels: id
	Up       *prometheus.GaugeVec // labels: id
	Duration prometheus.Histogram
}

// NewPollMetrics registers and returns the poll gauges.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	m := &PollMetrics{
		Value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "register_value",
			Help:      "Last polled register value.",
		}, []string{"id", "register"}),
		Status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_status",
			Help:      "Last status byte reported by a device.",
		}, []string{"id"}),
		Up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_up",
			Help:      "Whether the last poll of a device succeeded.",
		}, []string{"id"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time to poll every register of every device once.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	reg.MustRegister(m.Value, m.Status, m.Up, m.Duration)
	return m
}
