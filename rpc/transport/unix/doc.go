// Package unix implements the transport between property clients and the
// property service over Unix domain sockets, the way clients reach
// /dev/socket/property_service.
//
// This package extends the base transport layer with Unix socket-specific
// connectors while inheriting framing, request correlation and reconnection
// from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates the socket (world accessible, replacing a stale
//     socket file) and accepts connections
//
// Defaults: 64 KB read buffers and 16 workers per connection, so a client
// can wait on properties and still issue requests on the same connection.
package unix
