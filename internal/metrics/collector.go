// Package metrics exports controller counters and the current appliance
// state to Prometheus.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mobiremote/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mobiremote"

// StatusSource supplies the snapshot gauges at scrape time.
type StatusSource interface {
	GetStatus(ctx context.Context) (models.Snapshot, error)
}

type commandKey struct{ kind, outcome string }

type httpKey struct {
	route  string
	status int
}

// Collector implements prometheus.Collector, service.Recorder and
// controller.Recorder.
type Collector struct {
	mu     sync.RWMutex
	source StatusSource
	now    func() time.Time

	commands         map[commandKey]float64
	actuations       map[string]float64 // "ok" / "error"
	presses          float64
	lastActuation    float64 // seconds
	sensorErrors     float64
	tempReports      float64
	lastReportedTemp float64
	httpRequests     map[httpKey]float64
	httpDuration     map[string]float64
	lastUpdate       time.Time

	commandsDesc      *prometheus.Desc
	actuationsDesc    *prometheus.Desc
	pressesDesc       *prometheus.Desc
	actuationTimeDesc *prometheus.Desc
	sensorErrorsDesc  *prometheus.Desc
	tempReportsDesc   *prometheus.Desc
	reportedTempDesc  *prometheus.Desc
	targetDesc        *prometheus.Desc
	powerDesc         *prometheus.Desc
	temperatureDesc   *prometheus.Desc
	httpRequestsDesc  *prometheus.Desc
	httpDurationDesc  *prometheus.Desc
	lastUpdateDesc    *prometheus.Desc
}

func NewCollector() *Collector {
	return &Collector{
		now:          time.Now,
		commands:     make(map[commandKey]float64),
		actuations:   make(map[string]float64),
		httpRequests: make(map[httpKey]float64),
		httpDuration: make(map[string]float64),

		commandsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "commands", "total"),
			"Commands handled by the control loop",
			[]string{"kind", "outcome"}, nil,
		),
		actuationsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "actuations", "total"),
			"Button sequences run",
			[]string{"result"}, nil,
		),
		pressesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "button", "presses_total"),
			"Individual button presses issued",
			nil, nil,
		),
		actuationTimeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "actuation", "last_duration_seconds"),
			"Wall time of the last button sequence",
			nil, nil,
		),
		sensorErrorsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sensor", "errors_total"),
			"Failed temperature reads",
			nil, nil,
		),
		tempReportsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "temperature", "reports_total"),
			"Temperature values published after debouncing",
			nil, nil,
		),
		reportedTempDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "temperature", "last_reported_celsius"),
			"Last temperature value published",
			nil, nil,
		),
		targetDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "appliance", "target_celsius"),
			"Believed set point of the cooler",
			nil, nil,
		),
		powerDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "appliance", "power_state"),
			"Believed power state (1 = on, 0 = off)",
			nil, nil,
		),
		temperatureDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "appliance", "temperature_celsius"),
			"Last valid temperature sample",
			nil, nil,
		),
		httpRequestsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "requests_total"),
			"HTTP API requests",
			[]string{"route", "status"}, nil,
		),
		httpDurationDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "request_duration_seconds"),
			"Duration of the last request per route",
			[]string{"route"}, nil,
		),
		lastUpdateDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "last_update_timestamp"),
			"Timestamp of the last recorded observation",
			nil, nil,
		),
	}
}

// SetSource attaches the snapshot source once the services exist.
func (c *Collector) SetSource(s StatusSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = s
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.commandsDesc
	ch <- c.actuationsDesc
	ch <- c.pressesDesc
	ch <- c.actuationTimeDesc
	ch <- c.sensorErrorsDesc
	ch <- c.tempReportsDesc
	ch <- c.reportedTempDesc
	ch <- c.targetDesc
	ch <- c.powerDesc
	ch <- c.temperatureDesc
	ch <- c.httpRequestsDesc
	ch <- c.httpDurationDesc
	ch <- c.lastUpdateDesc
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.commands {
		ch <- prometheus.MustNewConstMetric(c.commandsDesc, prometheus.CounterValue, v, k.kind, k.outcome)
	}
	for result, v := range c.actuations {
		ch <- prometheus.MustNewConstMetric(c.actuationsDesc, prometheus.CounterValue, v, result)
	}
	ch <- prometheus.MustNewConstMetric(c.pressesDesc, prometheus.CounterValue, c.presses)
	ch <- prometheus.MustNewConstMetric(c.actuationTimeDesc, prometheus.GaugeValue, c.lastActuation)
	ch <- prometheus.MustNewConstMetric(c.sensorErrorsDesc, prometheus.CounterValue, c.sensorErrors)
	ch <- prometheus.MustNewConstMetric(c.tempReportsDesc, prometheus.CounterValue, c.tempReports)
	if c.tempReports > 0 {
		ch <- prometheus.MustNewConstMetric(c.reportedTempDesc, prometheus.GaugeValue, c.lastReportedTemp)
	}

	for k, v := range c.httpRequests {
		ch <- prometheus.MustNewConstMetric(c.httpRequestsDesc, prometheus.CounterValue, v, k.route, fmt.Sprintf("%d", k.status))
	}
	for route, d := range c.httpDuration {
		ch <- prometheus.MustNewConstMetric(c.httpDurationDesc, prometheus.GaugeValue, d, route)
	}

	if c.source != nil {
		if snap, err := c.source.GetStatus(context.Background()); err == nil {
			power := 0.0
			if snap.PowerOn {
				power = 1
			}
			ch <- prometheus.MustNewConstMetric(c.targetDesc, prometheus.GaugeValue, float64(snap.Target))
			ch <- prometheus.MustNewConstMetric(c.powerDesc, prometheus.GaugeValue, power)
			if snap.TemperatureValid {
				ch <- prometheus.MustNewConstMetric(c.temperatureDesc, prometheus.GaugeValue, snap.TemperatureC)
			}
		}
	}

	if !c.lastUpdate.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastUpdateDesc, prometheus.GaugeValue, float64(c.lastUpdate.Unix()))
	}
}

func (c *Collector) ObserveCommand(kind, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[commandKey{kind, outcome}]++
	c.lastUpdate = c.now()
}

func (c *Collector) ObserveActuation(presses int, took time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.actuations[result]++
	c.presses += float64(presses)
	c.lastActuation = took.Seconds()
	c.lastUpdate = c.now()
}

func (c *Collector) ObserveTemperatureReport(celsius float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempReports++
	c.lastReportedTemp = celsius
	c.lastUpdate = c.now()
}

func (c *Collector) ObserveSensorError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sensorErrors++
	c.lastUpdate = c.now()
}

func (c *Collector) ObserveHTTP(route string, status int, took time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpRequests[httpKey{route, status}]++
	c.httpDuration[route] = took.Seconds()
}
