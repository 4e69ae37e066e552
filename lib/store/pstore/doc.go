// Package pstore implements a persistent, domain-partitioned key-value
// store on top of an embedded storage engine. It provides the single-node
// implementation of the store.IStore interface and owns the full lifecycle
// of the engine underneath it: opening, corruption repair, read-only
// degradation and shutdown.
//
// Architecture:
//
// The pstore implementation consists of four main components:
//
//   - Lifecycle (pstore.go): SetUp opens the engine with the configured
//     domain set, Close releases it. Each successful open produces an
//     immutable session (engine handle, domain router, read-only bit) that
//     is swapped in atomically, so interface methods read it lock-free
//     while SetUp and Close serialize on a mutex.
//
//   - Domain Router (router.go): maps domain names onto engine partition
//     handles. The mapping is built once per open and stays stable until
//     the engine is closed.
//
//   - Operation Facade (facade.go): the store.IStore methods. Every
//     operation resolves its domain, applies the domain's durability
//     policy and translates engine statuses into store errors.
//
//   - Log Interceptor (interceptor.go): receives the engine's log lines
//     through a lock-free relay queue, scans them for corruption markers
//     and forwards the noteworthy ones. The engine-facing sink only
//     enqueues, nothing downstream ever calls back into the engine.
//
// Domains:
//
//	The key space is partitioned into named domains that are fixed per
//	store instance. Every operation addresses exactly one domain; an
//	implicit default domain exists on top of the configured list. One
//	domain can be flagged as the fast domain: its writes bypass the
//	write-ahead log and are never synced, trading durability for the
//	throughput that high-volume event recording needs. All other domains
//	sync explicitly so an acknowledged write survives a crash.
//
// Corruption Handling:
//
//	Corruption is detected on two paths:
//
//	- At open time, when the engine refuses to start with a corruption
//	  status. The store then quarantines the directory and retries the
//	  open exactly once on the fresh path.
//
//	- At runtime, when an engine log line carries a corruption marker.
//	  The interceptor sets an atomic corruption flag; the repair itself
//	  is deferred until Close so the engine is never pulled out from
//	  under in-flight operations.
//
//	A repair never rewrites store files in place. The directory is
//	renamed to <path>.backup, preserving the damaged files for offline
//	inspection, and the next open starts from an empty directory. An
//	older backup is removed first; if that removal fails the repair is
//	aborted so the existing evidence survives.
//
// Read-Only Degradation:
//
//	When the store cannot be opened writable (typically because another
//	process holds the engine lock) and the configuration does not demand
//	write access, it degrades to read-only operation: reads work
//	normally, writes succeed without doing anything. The dropped writes
//	are deliberate, callers like inspection tooling must run against a
//	database that a live service owns. Config.WriteRequired turns this
//	degradation into a hard OpenFailed error for deployments that cannot
//	tolerate silent write loss.
//
// Usage:
//
//	cfg := pstore.Config{
//	    Path:       "/var/lib/cellar/db",
//	    Domains:    pstore.DefaultDomains,
//	    FastDomain: pstore.DefaultFastDomain,
//	    Engine:     badgerdb.New,
//	}
//	s, err := pstore.New(cfg)
//	if err != nil { ... }
//	if err := s.SetUp(); err != nil { ... }
//	defer s.Close()
//
//	err = s.Put("settings", "node_key", []byte("..."))
//
// For a store that is shared between processes over the network, see the
// rpc/server and rpc/client packages which expose this implementation
// remotely.
package pstore
