// Package registry holds the capability registry: the descriptors of the
// workers the supervisor may route to, and their last known health.
package registry
