/*
Package executor runs slow, blocking world operations (create, start,
stop, delete) off whatever goroutine would otherwise block on them,
converting their outcome into exactly one callback invocation. A panic
inside an Op is recovered and treated the same as a false return: it is
never allowed to propagate to the caller.
*/
package executor
