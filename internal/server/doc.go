// Package server exposes the plugin over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method-qualified patterns on an [http.ServeMux], so a request
// with the wrong method gets 405 from the mux itself.
//
// # Endpoints
//
//	POST /call        → run one method call and wait for its reply
//	GET  /permission  → list permission requests waiting on an operator
//	POST /permission  → resolve a waiting permission request
//	GET  /health      → liveness and attachment state
//
// A call body is the JSON form of [models.Call]:
//
//	{"method": "getSongs", "arguments": {"source": "song", "sort_type": 2}}
//
// The reply is {"result": ...} on success or {"error": {"code", "message", "details"}} otherwise. Error codes map
// to HTTP statuses in [StatusFor].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
