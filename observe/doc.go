// Package observe provides the logging, metrics and tracing sink injected
// into the cache components.
//
// An Observer owns the OpenTelemetry providers and the structured logger for
// the lifetime of the process. Components do not reach for globals: they are
// given a *Telemetry built from the Observer (or Nop() in tests).
//
// The calling operation, such as "embed_one" or "fill", travels in the
// context (WithOp). The logger adds it as the "op" field, and span and metric
// attributes are derived from it, so the same store serves several operations
// while every log line still names the caller.
package observe
