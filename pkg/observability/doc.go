/*
Package observability turns supervisor lifecycle hooks into Prometheus
metrics and lets several hook sets share one supervisor.
*/
package observability
