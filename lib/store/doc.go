// Package store provides the name based interface for reading and writing
// system properties, independent of where the properties actually live.
//
// The package focuses on:
//   - A unified interface (IStore) for property operations across different backends
//   - A structured error type shared by every layer of the property stack
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining Get, Set, Delete, List,
//     Wait, Serial and GetAreaInfo. Command line tools and the property service
//     are written against this interface only, so a caller can switch between
//     writing shared memory directly and asking the service to do it.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     (RetCode) and descriptive messages. Every code has a sentinel (ErrAreaFull,
//     ErrNotFound, ...) and errors compare by code, so errors.Is works across
//     wrapping and across the rpc boundary.
//
// Implementations:
//
//	- Local Store (lstore): the SystemProperties facade. It maps the property
//	  areas of the current machine into memory and implements both the low level
//	  handle based API (Find, Read, Add, Update, ...) and IStore on top of it.
//	  Available in the "github.com/ValentinKolb/sysprop/lib/store/lstore" package.
//
//	- RPC Store: a client for the property service daemon that implements IStore
//	  by sending messages over a unix socket or http.
//	  Available in the "github.com/ValentinKolb/sysprop/rpc/client" package.
//
// The persist sub package stores persist.* properties on disk so they survive
// a restart of the service.
package store
