/*
Package metrics exposes the Prometheus metrics crld records about its own
FSM: per-state world gauges, transition counters, serializer queue
depths, and histograms for blocking operation and health reconciliation
latency. All metrics are registered at package init, following the same
MustRegister-at-init convention as the rest of the module's ambient
stack. A Collector periodically samples the state the FSM does not push
inline (world-state counts, queue depth); transition and duration
metrics are instead recorded inline at the point they occur.
*/
package metrics
