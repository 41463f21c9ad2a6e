// Package http implements an HTTP-based transport between property clients
// and the property service.
//
// Routes:
//   - POST /prop: one serialized request per body, the response is the body
//     of the reply
//   - GET /metrics: the counters of the service (reads, writes, waits, rpc
//     requests by type) in Prometheus text format
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport with round-robin
//     selection across endpoints and retries. Endpoints may be given as
//     host:port or as URLs.
//
//   - httpServerTransport: Implements IRPCServerTransport on top of
//     net/http, with a logging middleware at debug level.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It uses
//	atomic operations for the round-robin counter to ensure thread safety when
//	selecting server endpoints.
package http
