/*
Package health implements the FSM's health reconciler: given a world, it
inspects the orchestrator's running tasks for that world's stack and
derives a Health (up, degraded, down), excluding the VPN gateway
service from the computation. internal/fsm maps the result onto the
`up`/`down`/`fail` signals that drive the `checking` state's transition.
*/
package health
