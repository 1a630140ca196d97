// Package worker provides ports.Worker implementations: HTTP for remote
// domain services and Static for demos and tests.
package worker
