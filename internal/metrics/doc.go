// Package metrics defines the Prometheus metrics exposed by the picture
// frame service: HTTP request metrics, catalog store query metrics,
// scanner run metrics and rotation selection metrics.
package metrics
