package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "morpion"

// Command results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics groups the server collectors on a private registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	commands      *prometheus.CounterVec
	gamesFinished *prometheus.CounterVec
	forcedMoves   prometheus.Counter
	activeRooms   prometheus.Gauge
	connections   prometheus.Gauge
}

func New() *Metrics {
	that := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Client commands handled, by command and result",
			},
			[]string{"command", "result"},
		),
		gamesFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_finished_total",
				Help:      "Games that reached a terminal state, by outcome",
			},
			[]string{"outcome"},
		),
		forcedMoves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_moves_total",
			Help:      "Moves played by the server after a turn deadline passed",
		}),
		activeRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms currently alive",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open websocket connections",
		}),
	}

	that.registry.MustRegister(
		that.commands,
		that.gamesFinished,
		that.forcedMoves,
		that.activeRooms,
		that.connections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return that
}

func (that *Metrics) Registry() *prometheus.Registry {
	if that == nil {
		return nil
	}
	return that.registry
}

// Handler serves the prometheus exposition of the private registry.
func (that *Metrics) Handler() http.Handler {
	if that == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(that.registry, promhttp.HandlerOpts{Registry: that.registry})
}

func (that *Metrics) CommandHandled(command, result string) {
	if that == nil {
		return
	}
	that.commands.WithLabelValues(command, result).Inc()
}

func (that *Metrics) GameFinished(outcome string) {
	if that == nil {
		return
	}
	that.gamesFinished.WithLabelValues(outcome).Inc()
}

func (that *Metrics) MovesForced(n int) {
	if that == nil || n <= 0 {
		return
	}
	that.forcedMoves.Add(float64(n))
}

func (that *Metrics) SetActiveRooms(n int) {
	if that == nil {
		return
	}
	that.activeRooms.Set(float64(n))
}

func (that *Metrics) ConnectionOpened() {
	if that == nil {
		return
	}
	that.connections.Inc()
}

func (that *Metrics) ConnectionClosed() {
	if that == nil {
		return
	}
	that.connections.Dec()
}
