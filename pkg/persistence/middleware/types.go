// Package middleware decorates a ports.ContextStore with at-rest protections
// for conversation snapshots.
package middleware

import "github.com/aretw0/furrow/pkg/ports"

// Middleware allows wrapping a ContextStore to add behavior.
type Middleware func(ports.ContextStore) ports.ContextStore

// Chain wraps store with mws. The first middleware sees a Save first.
func Chain(store ports.ContextStore, mws ...Middleware) ports.ContextStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
