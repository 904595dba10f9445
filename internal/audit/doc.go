// Package audit defines the audit event model and the sink implementations
// the root package re-exports. Dispatching (buffering, drop accounting)
// lives in the root package next to the handler that emits events.
package audit
