/*
Package orchestrator wraps three read-only capabilities of the underlying
Docker Swarm cluster into pure, record-returning functions: listing a
stack's running tasks, inspecting an arbitrary object, and listing services
with their virtual-IP bindings.

All three shell out to the `docker` CLI and parse its `--format=json`
output, mirroring the reference implementation's use of a CLI wrapper
rather than a raw Engine API client. Any failure — docker absent, the
target stack or service missing, malformed output — yields a zero-value
result, never a partially populated one; callers treat "empty" as "object
not present" per the adapter contract.

Every exported method here is synchronous and may block on a subprocess.
The FSM actor goroutine reaches them only through internal/executor, so it
never blocks on one; HTTP handlers call them directly on their own request
goroutine.
*/
package orchestrator
