/*
Package httpapi implements the world lifecycle daemon's REST surface
using the standard library net/http.ServeMux method+pattern routing
(Go 1.22+). Every route runs through withWorldArgs, which validates and
lower-cases the {event}/{user} path values before the handler body runs,
and through a panic-recovery wrapper that turns an uncaught panic into a
500 instead of a dropped connection.
*/
package httpapi
