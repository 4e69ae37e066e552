package pstore

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/cellardb/cellar/lib/engine"
	"github.com/cellardb/cellar/lib/events"
	"github.com/cellardb/cellar/lib/logger"
	"github.com/cellardb/cellar/lib/store"
)

var Logger = logger.GetLogger("pstore")

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// DefaultDomains is the domain set a stock deployment uses. The implicit
// default domain is always added on top of the configured list.
var DefaultDomains = []string{"settings", "schedule", "events", "results"}

// DefaultFastDomain is the domain flagged for fast non-durable writes in
// the default domain set.
const DefaultFastDomain = "events"

// defaultDomain is the implicit partition every store carries.
const defaultDomain = "default"

// backupSuffix is appended to the store path to name the quarantine
// directory a repair moves a corrupt store to.
const backupSuffix = ".backup"

// Config holds the static configuration of a persistent store. It is
// fixed at construction time, SetUp and Close never change it.
type Config struct {
	// Path is the directory the engine keeps its files in.
	Path string
	// Domains lists the named partitions of the key space. An empty list
	// selects DefaultDomains. The implicit default domain is always added.
	Domains []string
	// FastDomain flags one domain whose writes trade durability for
	// throughput. Empty means every domain writes durably.
	FastDomain string
	// WriteRequired makes SetUp fail hard when the store cannot be opened
	// writable instead of degrading to read-only operation.
	WriteRequired bool
	// Engine is the factory for the underlying key-value engine.
	Engine engine.Factory
}

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// EngineState describes the lifecycle state of a store.
type EngineState uint32

const (
	StateClosed EngineState = iota
	StateOpen
	StateOpenReadOnly
)

func (s EngineState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateOpenReadOnly:
		return "OpenReadOnly"
	default:
		return "Unknown"
	}
}

// session is one open engine lifetime. A session never mutates after it is
// published: SetUp builds a fresh session and swaps it in, Close swaps it
// out. Readers work lock-free on whatever session they loaded.
type session struct {
	eng      engine.KVEngine
	router   *domainRouter
	readOnly bool
}

// --------------------------------------------------------------------------
// Store Implementation
// --------------------------------------------------------------------------

// Store is the persistent, domain-partitioned implementation of the
// store.IStore interface. It owns the lifecycle of the underlying engine:
// opening (with corruption repair and read-only degradation), closing and
// quarantining a store directory that was flagged corrupt while open.
//
// Thread-safety: all interface methods may be called concurrently. SetUp
// and Close serialize on an internal mutex; reads racing a concurrent
// Close see either the old session or a NotOpened error.
type Store struct {
	config      Config
	descriptors []engine.PartitionDescriptor
	policy      durabilityPolicy

	mu          sync.Mutex // guards SetUp/Close transitions
	session     atomic.Pointer[session]
	flag        CorruptionFlag
	interceptor *interceptor
}

var _ store.IStore = (*Store)(nil)

// New creates a persistent store for the given configuration. The engine
// is not opened yet, call SetUp before using the store.
func New(config Config) (*Store, error) {
	if config.Engine == nil {
		return nil, store.NewError(store.RetCConfigError, "no engine factory configured")
	}
	if config.Path == "" {
		return nil, store.NewError(store.RetCConfigError, "no store path configured")
	}
	if len(config.Domains) == 0 {
		config.Domains = DefaultDomains
	}

	descriptors, err := buildDescriptors(config.Domains)
	if err != nil {
		return nil, err
	}
	if config.FastDomain != "" && !containsDescriptor(descriptors, config.FastDomain) {
		return nil, store.NewErrorf(store.RetCConfigError,
			"fast domain %q is not in the domain list", config.FastDomain)
	}

	return &Store{
		config:      config,
		descriptors: descriptors,
		policy:      durabilityPolicy{fastDomain: config.FastDomain},
	}, nil
}

// buildDescriptors turns the configured domain list into partition
// descriptors, prepending the implicit default domain.
func buildDescriptors(domains []string) ([]engine.PartitionDescriptor, error) {
	descriptors := make([]engine.PartitionDescriptor, 0, len(domains)+1)
	if !containsString(domains, defaultDomain) {
		descriptors = append(descriptors, engine.PartitionDescriptor{Name: defaultDomain})
	}
	for _, domain := range domains {
		d := engine.PartitionDescriptor{Name: domain}
		if err := d.Validate(); err != nil {
			return nil, store.NewErrorf(store.RetCConfigError, "invalid domain %q: %v", domain, err)
		}
		if containsDescriptor(descriptors, domain) {
			return nil, store.NewErrorf(store.RetCConfigError, "duplicate domain %q", domain)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func containsString(list []string, s string) bool {
	for _, elem := range list {
		if elem == s {
			return true
		}
	}
	return false
}

func containsDescriptor(list []engine.PartitionDescriptor, name string) bool {
	for _, d := range list {
		if d.Name == name {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// SetUp opens the underlying engine. Any previously open engine is closed
// first, so SetUp doubles as a reopen.
//
// If the open fails with a corruption status the store directory is
// quarantined (see repairStore) and the open is retried exactly once on
// the then-fresh path. If the store still cannot be opened writable the
// behavior depends on Config.WriteRequired: a store that must write fails
// with OpenFailed, any other store degrades to read-only operation where
// reads work and writes are dropped silently.
//
// On a successful writable open the store directory is restricted to
// owner access.
func (s *Store) SetUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pathExists(s.config.Path) && !isReadable(s.config.Path) {
		return store.NewErrorf(store.RetCConfigError, "cannot read store path %s", s.config.Path)
	}

	// Release any previous engine handle. This also runs a repair that a
	// corruption flag from the previous session deferred to close.
	s.closeLocked()

	s.interceptor = newInterceptor(&s.flag)

	opts := engine.DefaultOpenOptions()
	opts.Partitions = s.descriptors
	opts.LogSink = s.interceptor.sink()

	eng, err := s.config.Engine(s.config.Path, opts)
	if err != nil && engine.IsCorruption(err) {
		Logger.Warningf("store at %s is corrupt: %v", s.config.Path, err)
		if rerr := s.repairStore(); rerr == nil {
			// Fresh relay for the retry: lines from the corrupt open must
			// not taint the repaired store's corruption flag.
			s.interceptor.Close()
			s.flag.Set(false)
			s.interceptor = newInterceptor(&s.flag)
			opts.LogSink = s.interceptor.sink()
			eng, err = s.config.Engine(s.config.Path, opts)
		}
	}

	if err != nil {
		if s.config.WriteRequired {
			s.teardownInterceptor()
			return store.NewErrorf(store.RetCOpenFailed, "could not open store: %v", err)
		}
		Logger.Warningf("could not open store writable, retrying read-only: %v", err)
		opts.ReadOnly = true
		eng, err = s.config.Engine(s.config.Path, opts)
		if err != nil {
			s.teardownInterceptor()
			return store.NewErrorf(store.RetCOpenFailed, "could not open store: %v", err)
		}
		s.session.Store(&session{
			eng:      eng,
			router:   newDomainRouter(eng.Partitions()),
			readOnly: true,
		})
		// Event recording would silently drop its writes anyway.
		events.Disable()
		Logger.Warningf("store at %s opened read-only, writes will be dropped", s.config.Path)
		return nil
	}

	if eng.SupportsFeature(engine.FeaturePersistent) {
		if cerr := os.Chmod(s.config.Path, 0700); cerr != nil {
			_ = eng.Close()
			s.teardownInterceptor()
			return store.NewErrorf(store.RetCConfigError,
				"cannot restrict permissions on %s: %v", s.config.Path, cerr)
		}
	}

	s.session.Store(&session{
		eng:    eng,
		router: newDomainRouter(eng.Partitions()),
	})
	events.Enable()
	return nil
}

// Close releases the engine handles. It never fails: shutdown problems
// are logged and swallowed. If corruption was flagged while the store was
// open the store directory is quarantined before Close returns.
//
// Closing a store that is not open is a no-op.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// closeLocked implements Close. Callers hold s.mu.
func (s *Store) closeLocked() {
	if sess := s.session.Swap(nil); sess != nil {
		if err := sess.eng.Close(); err != nil {
			Logger.Errorf("closing engine: %v", err)
		}
	}

	// Drain the relay before reading the corruption flag so a line the
	// engine logged during shutdown still counts.
	s.teardownInterceptor()

	if s.flag.IsSet() {
		Logger.Warningf("corruption was flagged while the store was open, repairing %s", s.config.Path)
		if err := s.repairStore(); err != nil {
			Logger.Errorf("repair of %s failed: %v", s.config.Path, err)
		}
		s.flag.Set(false)
	}
}

func (s *Store) teardownInterceptor() {
	if s.interceptor != nil {
		s.interceptor.Close()
		s.interceptor = nil
	}
}

// repairStore quarantines the store directory by renaming it to
// <path>.backup. The store is never repaired in place: the damaged files
// are preserved for offline inspection and the next open starts from an
// empty directory.
//
// A backup left behind by an earlier repair is removed first. If that
// removal fails the repair is aborted so the older evidence survives.
func (s *Store) repairStore() error {
	backup := s.config.Path + backupSuffix

	if pathExists(backup) {
		if err := os.RemoveAll(backup); err != nil {
			Logger.Errorf("could not remove stale backup %s: %v", backup, err)
			return err
		}
		Logger.Infof("removed stale backup %s", backup)
	}

	if err := os.Rename(s.config.Path, backup); err != nil {
		Logger.Errorf("could not move corrupt store aside: %v", err)
		return err
	}

	Logger.Warningf("store %s quarantined to %s", s.config.Path, backup)
	return nil
}

// --------------------------------------------------------------------------
// State Inspection
// --------------------------------------------------------------------------

// State returns the current lifecycle state of the store.
func (s *Store) State() EngineState {
	sess := s.session.Load()
	if sess == nil {
		return StateClosed
	}
	if sess.readOnly {
		return StateOpenReadOnly
	}
	return StateOpen
}

// IsCorrupted reports whether corruption was flagged for the current
// session.
func (s *Store) IsCorrupted() bool {
	return s.flag.IsSet()
}

// SetCorrupted sets or clears the corruption flag. The flag is normally
// set by the log relay when the engine reports corruption, this setter
// exists for health checks and tests.
func (s *Store) SetCorrupted(corrupted bool) {
	s.flag.Set(corrupted)
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// pathExists reports whether the path exists at all, readable or not.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// isReadable reports whether the process may open the path for reading.
func isReadable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
