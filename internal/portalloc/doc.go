/*
Package portalloc implements the Port Allocation Service's core: bind an
ephemeral TCP port and hand back whatever the kernel assigned, retrying
against a caller-supplied blacklist. It deliberately keeps no state of
its own between calls — the blacklist is the only memory the allocation
has of previously issued ports, matching portd.py's stateless design.
*/
package portalloc
