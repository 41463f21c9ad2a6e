// Package common provides core data structures and utilities shared across
// the property service, its clients and the command line tools. It defines
// the message protocol, configuration structures and logging.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between clients
//     and the property service. Errors travel as a store.RetCode plus message,
//     so errors.Is(err, store.ErrValueTooLong) works on both sides.
//
//   - MessageType: Enumeration of all supported operations (get, set, delete,
//     list, wait, serial, info) and the error response.
//
//   - ServerConfig: Configuration of the property service, including the
//     lstore.Config of the areas it owns.
//
//   - ClientConfig: Configuration for client components, controlling endpoints,
//     timeouts, and retry behavior.
//
//   - Logger: Custom logging implementation that plugs into dragonboat's
//     logger package, which every package of this module logs through.
package common
