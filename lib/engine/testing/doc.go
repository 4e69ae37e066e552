// Package testing provides standardised tests and benchmarks for storage
// engines that satisfy the engine.KVEngine interface.
//
// The package contains:
//   - testing: A conformance suite validating the KVEngine interface contract,
//     including partition isolation, batch atomicity and read-only behaviour
//   - benchmark: Performance tests for measuring throughput of common engine operations
//
// Tests that exercise optional capabilities (persistence, read-only opens,
// range deletes) check SupportsFeature first and skip when the engine does
// not support them, so one suite covers every adapter.
//
// Example usage:
//
//	// Running the standard test suite against an adapter's factory
//	enginetesting.RunEngineTests(t, "BadgerDB", badgerdb.New)
//
//	// Running performance benchmarks
//	enginetesting.RunEngineBenchmarks(b, "BadgerDB", badgerdb.New)
package testing
