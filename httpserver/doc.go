/*
Package httpserver exposes the wallet's message router to untrusted contexts
over HTTP.

# Endpoints

  - POST /api/dispatch - dispatch one {route, type, msg} envelope
  - GET /api/routes - list registered routes and message kinds
  - GET /livez, /readyz - liveness and readiness
  - GET /drain, /undrain - toggle readiness ahead of a shutdown
  - /debug/pprof - when enabled

Prometheus metrics are served by a separate server on the metrics address.

# Caller Identity

The origin of a dispatch comes from the X-Wallet-Origin header; a request
without it is rejected with 401 before reaching the router. The internal
origin additionally requires X-Wallet-Internal-Token. Whether an origin may
use a route is decided by the route's handler through the permission gate,
never by the bridge.
*/
package httpserver
