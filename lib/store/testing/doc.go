// Package testing provides standardised tests and benchmarks for
// property stores that satisfy the store.IStore interface.
//
// The package contains:
//   - testing: a test suite validating the IStore contract
//   - benchmark: throughput of common property operations
//
// A store handed to the suite must route every valid name to a writable
// area, e.g. by using a property_contexts file with a "*" entry.
//
// Example usage:
//
//	factory := func(tb testing.TB) store.IStore {
//		return newTestStore(tb)
//	}
//
//	storetesting.RunStoreTests(t, "LocalStore", factory)
//	storetesting.RunStoreBenchmarks(b, "LocalStore", factory)
package testing
