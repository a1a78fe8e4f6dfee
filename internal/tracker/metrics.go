package tracker

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts tracker activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ticks          prometheus.Counter
	sends          *prometheus.CounterVec
	kills          *prometheus.CounterVec
	terminations   *prometheus.CounterVec
	reportedActive prometheus.Gauge
}

// NewMetrics registers the tracker metrics on registry. A nil registry yields nil.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aatracker_ticks_total",
			Help: "Total number of ticks that passed the options gate",
		}),
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aatracker_sends_total",
				Help: "Total number of run updates sent to PaceMan by result",
			},
			[]string{"result"},
		),
		kills: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aatracker_kills_total",
				Help: "Total number of kill requests sent to PaceMan by result",
			},
			[]string{"result"},
		),
		terminations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aatracker_terminations_total",
				Help: "Total number of runs ended locally by reason",
			},
			[]string{"reason"},
		),
		reportedActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aatracker_run_reported_active",
			Help: "1 while the current run is live on PaceMan",
		}),
	}

	registry.MustRegister(m.ticks, m.sends, m.kills, m.terminations, m.reportedActive)
	return m
}

func (m *Metrics) IncrementTicks() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *Metrics) IncrementSends(result string) {
	if m != nil {
		m.sends.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementKills(result string) {
	if m != nil {
		m.kills.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementTerminations(reason string) {
	if m != nil {
		m.terminations.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SetReportedActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.reportedActive.Set(1)
	} else {
		m.reportedActive.Set(0)
	}
}
