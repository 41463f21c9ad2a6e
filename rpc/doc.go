// Package rpc provides the communication layer between property clients and
// the property service.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: A store.IStore that forwards operations to the property service.
//
//   - server: The property service, which owns the property areas and handles
//     incoming requests.
package rpc
