// Package serializer provides message serialization for the property service
// RPC system. It defines a common interface and multiple implementations for
// serializing and deserializing messages between clients and the service.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format. A flags byte records which
//     optional fields are present, so only those are encoded. Strings are
//     length prefixed, property lists and area descriptions are encoded as
//     counted sequences.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, useful for debugging
//     and for talking to the HTTP transport with curl.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	serializer := serializer.NewBinarySerializer()
//	data, err := serializer.Serialize(message)
//	// ... send data ...
//	var receivedMsg common.Message
//	err = serializer.Deserialize(receivedData, &receivedMsg)
package serializer
