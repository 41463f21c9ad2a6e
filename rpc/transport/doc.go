// Package transport defines the interfaces for RPC communication between
// property clients and the property service. It provides a common contract
// that all transport implementations must fulfill.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and passes them to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations: unix (framed requests over a unix domain socket, built on
// base) and http (POST /prop, plus GET /metrics).
package transport
