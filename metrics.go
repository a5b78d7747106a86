package scpidev

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scpidev_commands_total",
		Help: "Number of successfully executed commands.",
	})

	metricAlarms = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scpidev_alarms_total",
		Help: "Number of alarms recorded.",
	})

	metricWorkersAlive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scpidev_workers_alive",
		Help: "Number of transport workers currently serving.",
	})
)
