package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	opStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "operation",
		Name:      "started_total",
		Help:      "Number of operations started.",
	})
	opPaused = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "operation",
		Name:      "paused_total",
		Help:      "Number of pause transitions applied.",
	})
	opResumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "operation",
		Name:      "resumed_total",
		Help:      "Number of resume transitions applied.",
	})
	opCancelRequested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "operation",
		Name:      "cancel_requested_total",
		Help:      "Number of cancel requests accepted.",
	})
	opCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "operation",
		Name:      "cancelled_total",
		Help:      "Number of operations finalized as cancelled by their runner.",
	})
	opHeartbeat = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "operation",
		Name:      "heartbeat_total",
		Help:      "Number of completed work units across all operations.",
	})
	opFinished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "operation",
		Name:      "finished_total",
		Help:      "Number of operations run to completion.",
	})
	opFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "operation",
		Name:      "failed_total",
		Help:      "Number of operations finalized as failed (panic guard or reconciler).",
	})
	opRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "longrun",
		Subsystem: "operation",
		Name:      "running",
		Help:      "Current number of live runners.",
	})

	// Agent collaborator metrics (demo surface).
	agentRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "agent",
		Name:      "requests_total",
		Help:      "Number of requests handled by the ops coordinator.",
	})
	agentWorkerTasks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "agent",
		Name:      "worker_tasks_total",
		Help:      "Number of tasks performed by worker agents.",
	})
	agentWorkerHeartbeat = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "longrun",
		Subsystem: "agent",
		Name:      "worker_heartbeat_total",
		Help:      "Heartbeats emitted by simulated worker runs.",
	})
	agentLastRequestSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "longrun",
		Subsystem: "agent",
		Name:      "last_request_success",
		Help:      "1 when the most recent coordinator request succeeded.",
	})
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		opStarted, opPaused, opResumed, opCancelRequested, opCancelled,
		opHeartbeat, opFinished, opFailed, opRunning,
		agentRequests, agentWorkerTasks, agentWorkerHeartbeat, agentLastRequestSuccess,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStarted() {
	if regOK.Load() {
		opStarted.Inc()
	}
}
func IncPaused() {
	if regOK.Load() {
		opPaused.Inc()
	}
}
func IncResumed() {
	if regOK.Load() {
		opResumed.Inc()
	}
}
func IncCancelRequested() {
	if regOK.Load() {
		opCancelRequested.Inc()
	}
}
func IncCancelled() {
	if regOK.Load() {
		opCancelled.Inc()
	}
}
func IncHeartbeat() {
	if regOK.Load() {
		opHeartbeat.Inc()
	}
}
func IncFinished() {
	if regOK.Load() {
		opFinished.Inc()
	}
}
func IncFailed() {
	if regOK.Load() {
		opFailed.Inc()
	}
}
func SetRunning(n int) {
	if regOK.Load() {
		opRunning.Set(float64(n))
	}
}

func IncAgentRequest() {
	if regOK.Load() {
		agentRequests.Inc()
	}
}
func IncWorkerTask() {
	if regOK.Load() {
		agentWorkerTasks.Inc()
	}
}
func IncWorkerHeartbeat() {
	if regOK.Load() {
		agentWorkerHeartbeat.Inc()
	}
}
func SetLastRequestSuccess(ok bool) {
	if regOK.Load() {
		var v float64
		if ok {
			v = 1
		}
		agentLastRequestSuccess.Set(v)
	}
}
