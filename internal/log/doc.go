/*
Package log provides structured logging for crld and portd using zerolog.

It wraps the zerolog library with component-scoped child loggers so every
log line can be traced back to the subsystem that emitted it (main, fsm,
executor, worldops, httpapi, metrics, portd). The FSM's transition log line format
is exempt from structured-field conventions: it is emitted verbatim as
"event=<e> user=<u> <old>-><new> (<signal>)" to preserve the canonical
serialization that downstream tooling greps for.
*/
package log
