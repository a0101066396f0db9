/*
Package fsm implements the per-(event,user) world lifecycle state
machine. A single actor goroutine owns the state map and the two
serializer queues; every signal is delivered by sending a command on its
channel, reproducing the single-threaded event-loop semantics the state
machine depends on without serializing unrelated worlds behind each
other.

	notfound --create--> creating --down--> stopped --start--> starting --up--> running
	   ^                     |                  ^                  |               |
	   |                   fail                 |                fail           stop
	   |           (blocking delete)             \__________________/              |
	   |                     v                                                     v
	   +-----------------check (4.G)-------------------------------------------stopping
	                         |                                                     |
	                   up/down/fail                                            down/fail
	                         v                                                     v
	             running/stopped/notfound                                     stopped

Every cell not shown above is a no-op: replaying a signal that has no
transition from the current state leaves it unchanged.
*/
package fsm
