// Package middleware provides the HTTP middleware used by the picture
// frame service: request logging and Prometheus metrics collection.
package middleware
