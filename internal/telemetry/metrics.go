package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus метрики прогонов протокола.
//
// Регистрируются на переданном Registerer, поэтому в тестах
// можно использовать отдельный prometheus.NewRegistry().
type Metrics struct {
	// RunsTotal — завершённые прогоны по итоговому статусу.
	RunsTotal *prometheus.CounterVec

	// PhaseDuration — длительность фаз протокола.
	PhaseDuration *prometheus.HistogramVec

	// PausesTotal — число пауз по открытой двери.
	PausesTotal prometheus.Counter

	// TipsTotal — наконечники по пипетке и судьбе (picked, returned, dropped).
	TipsTotal *prometheus.CounterVec

	// VolumeTotal — перемещённый объём по пипетке и операции.
	VolumeTotal *prometheus.CounterVec

	// RunPaused — 1, пока протокол на паузе.
	RunPaused prometheus.Gauge
}

// Значения метки disposition для TipsTotal.
const (
	TipPicked   = "picked"
	TipReturned = "returned"
	TipDropped  = "dropped"
)

// NewMetrics создаёт и регистрирует метрики.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beadprep_runs_total",
			Help: "Finished purification runs by status",
		}, []string{"status"}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "beadprep_phase_duration_seconds",
			Help: "Wall-clock duration of protocol phases",
			// Фазы длятся от секунд (setup) до десятков минут (wash)
			Buckets: prometheus.ExponentialBuckets(1, 2, 13),
		}, []string{"phase"}),
		PausesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beadprep_pauses_total",
			Help: "Protocol pauses caused by an open robot door",
		}),
		TipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beadprep_tips_total",
			Help: "Tip handling operations by pipette and disposition",
		}, []string{"pipette", "disposition"}),
		VolumeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beadprep_volume_microliters_total",
			Help: "Liquid volume moved by pipette and operation",
		}, []string{"pipette", "op"}),
		RunPaused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beadprep_run_paused",
			Help: "1 while the running protocol is paused",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.PhaseDuration,
		m.PausesTotal,
		m.TipsTotal,
		m.VolumeTotal,
		m.RunPaused,
	)
	return m
}

// SetPaused выставляет gauge паузы. Безопасен для nil.
func (m *Metrics) SetPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.PausesTotal.Inc()
		m.RunPaused.Set(1)
		return
	}
	m.RunPaused.Set(0)
}

// ObservePhase записывает длительность фазы. Безопасен для nil.
func (m *Metrics) ObservePhase(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(seconds)
}

// RunFinished учитывает завершённый прогон. Безопасен для nil.
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// Tip учитывает операцию с наконечником. Безопасен для nil.
func (m *Metrics) Tip(pipette, disposition string) {
	if m == nil {
		return
	}
	m.TipsTotal.WithLabelValues(pipette, disposition).Inc()
}

// Volume учитывает перемещённый объём. Безопасен для nil.
func (m *Metrics) Volume(pipette, op string, microliters float64) {
	if m == nil || microliters <= 0 {
		return
	}
	m.VolumeTotal.WithLabelValues(pipette, op).Add(microliters)
}
