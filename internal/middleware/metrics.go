package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ActiveWebSockets tracks open view stream connections.
var ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "statusfeed_active_websockets",
	Help: "Number of open view stream connections",
})

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the HTTP metrics middleware for serviceName. The
// collectors live in the default registry, so only the first call creates
// them.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}
