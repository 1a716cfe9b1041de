// Package metrics defines the Prometheus instrumentation for logrelay-server.
// All collectors are registered on the default registry via promauto and
// exposed by the /metrics endpoint mounted in main.
package metrics
