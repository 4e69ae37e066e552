// Package store provides a high-level interface for domain-partitioned
// key-value storage operations with unified error handling. It serves as an
// abstraction layer over the lower-level engine.KVEngine adapters, adding
// functionality such as lifecycle management, durability policy and
// standardized error reporting.
//
// The package focuses on:
//   - A unified interface (IStore) for domain-scoped key-value operations
//   - A structured error system shared by local stores and RPC transports
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for
//     interacting with a domain-partitioned key-value store. All
//     implementations share this common interface, allowing applications to
//     switch between a local store and a remote client without code
//     changes. Reads distinguish "not found" from errors, batched writes
//     are atomic, and scans return keys in ascending lexicographic order.
//
//   - Error System: A structured error reporting mechanism using typed
//     error codes and descriptive messages. The codes cover lifecycle
//     failures (NotOpened, OpenFailed, ConfigError), per-call failures
//     (DomainNotFound, IOError, Deserialization) and corruption signals,
//     so applications can make informed decisions based on specific error
//     conditions rather than generic errors.
//
//   - StoreInfo: Standardized metadata about a store instance: its path,
//     lifecycle state, domain list, read-only flag, corruption flag and
//     the underlying engine's own info record.
//
// Implementations:
//
//	The package includes one local implementation of the IStore interface:
//
//	- Persistent Store (pstore): A managed store that owns an engine
//	  instance end to end: setup with automatic corruption repair,
//	  per-domain durability policy, read-only degradation and quarantine
//	  of corrupt data. Available in the
//	  "github.com/cellardb/cellar/lib/store/pstore" package.
//
//	A remote implementation lives in the rpc/client package, which exposes
//	a server-side pstore through the same IStore interface.
//
// This interface-driven approach allows applications to:
//   - Run against a local store or a remote one depending on deployment requirements
//   - Handle errors in a consistent and type-safe manner across implementations
//   - Abstract storage implementation details from application logic
package store
