// Package server implements the property service: the privileged process
// that creates the property areas, is their single writer and serves
// requests from clients that may only read shared memory.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that processes incoming requests against a store.IStore.
//
//   - NewIStoreServerAdapter: Adapter translating RPC requests to store.IStore
//     calls. Every request is counted in sysprop_rpc_requests_total{type}.
//
//   - RPCServer: Creates the areas (AreaInit) from the configured
//     property_contexts, optionally restores persist.* properties and serves
//     requests over the configured transport and serializer.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Properties:     lstore.DefaultConfig(),
//	  LoadPersistent: true,
//	  Endpoint:       common.DefaultSocket,
//	  TimeoutSecond:  5,
//	  LogLevel:       "info",
//	}
//	config.Properties.PersistDir = "/data/property"
//
//	s := server.NewRPCServer(
//	  config,
//	  unix.NewUnixDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.ServeUntilSignal(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Start-up fails if the areas can not be created, or if labelling them fails
// and RequireLabel is set.
//
// Thread Safety:
//
//	Requests are handled concurrently. Writes are serialised by the
//	SystemProperties of the server; reads and waits run in parallel.
package server
