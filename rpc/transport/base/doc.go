// Package base provides the stream transport shared by socket based
// transports. It implements framing, request correlation and connection
// handling independent of the concrete socket type, which is supplied by a
// connector.
//
// Frame format: 8 bytes request ID, 4 bytes payload length (both big endian),
// followed by the payload. Responses carry the request ID of their request,
// so a connection can have many requests in flight, including long waits.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for socket-specific operations.
//
//   - clientTransport: Client implementation that manages one or more
//     connections per endpoint with round-robin selection. A broken connection
//     fails its pending requests and is re-established.
//
//   - serverTransport: Server implementation that accepts connections and runs
//     requests on a bounded number of workers per connection.
//
// Thread Safety:
//
//	All public methods are thread-safe. The client transport uses atomic operations
//	and mutexes to ensure concurrent access safety, while the server creates a
//	dedicated goroutine for each connection.
package base
