// Package observability provides spy implementations of the inventory
// observability interfaces for asserting on logging, metrics, and tracing
// instrumentation in tests.
package observability
