// Package metrics exports instance lifecycle metrics to Prometheus.
package metrics

import (
	"github.com/librescoot/edfsm"
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values of edfsm_instances_ended_total
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics collects lifecycle metrics of every instance whose definition
// was given its Hooks
type Metrics struct {
	created     *prometheus.CounterVec
	ended       *prometheus.CounterVec
	running     *prometheus.GaugeVec
	entries     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	unconsumed  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edfsm_instances_created_total",
				Help: "Total number of instances started",
			},
			[]string{"fsm"},
		),
		ended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edfsm_instances_ended_total",
				Help: "Total number of instances that reached the end, by result",
			},
			[]string{"fsm", "result"},
		),
		running: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edfsm_instances_running",
				Help: "Number of instances that have not ended yet",
			},
			[]string{"fsm"},
		),
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edfsm_state_entries_total",
				Help: "Total number of state activations",
			},
			[]string{"fsm", "state"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edfsm_transitions_total",
				Help: "Total number of states left, by outcome kind",
			},
			[]string{"fsm", "state", "outcome"},
		),
		unconsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edfsm_unconsumed_events_total",
				Help: "Total number of emitted events no listener consumed",
			},
			[]string{"fsm", "event"},
		),
	}

	for _, c := range []prometheus.Collector{m.created, m.ended, m.running, m.entries, m.transitions, m.unconsumed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding m
func (m *Metrics) Hooks() edfsm.Hooks {
	return edfsm.Hooks{
		OnCreate: func(info edfsm.InstanceInfo) {
			m.created.WithLabelValues(info.Name).Inc()
			m.running.WithLabelValues(info.Name).Inc()
		},
		OnEnter: func(info edfsm.InstanceInfo, state edfsm.StateID) {
			m.entries.WithLabelValues(info.Name, string(state)).Inc()
		},
		OnLeave: func(info edfsm.InstanceInfo, state edfsm.StateID, outcome edfsm.Outcome) {
			m.transitions.WithLabelValues(info.Name, string(state), outcome.Kind().String()).Inc()
		},
		OnUnconsumed: func(info edfsm.InstanceInfo, event edfsm.EventID) {
			m.unconsumed.WithLabelValues(info.Name, string(event)).Inc()
		},
		OnEnd: func(info edfsm.InstanceInfo, err error) {
			result := ResultOK
			if err != nil {
				result = ResultError
			}
			m.ended.WithLabelValues(info.Name, result).Inc()
			m.running.WithLabelValues(info.Name).Dec()
		},
	}
}
