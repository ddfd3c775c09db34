package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

var registry *prometheus.Registry

// PromRegistry returns the process metrics registry, initialized once only.
func PromRegistry() *prometheus.Registry {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}
