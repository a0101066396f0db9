/*
Package worldops implements the blocking, world-mutating shell-outs that
the FSM's serializer queues and the "fail during creating" cleanup path
run off the event loop: create, start, stop, and delete. Each wraps a
`docker stack` subcommand against a world's on-disk compose descriptor and
returns a plain bool rather than an error, matching the contract
internal/executor expects from any op it dispatches.
*/
package worldops
