package pstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cellardb/cellar/lib/engine"
	"github.com/cellardb/cellar/lib/engine/badgerdb"
	"github.com/cellardb/cellar/lib/engine/ephemeral"
	"github.com/cellardb/cellar/lib/events"
	"github.com/cellardb/cellar/lib/store"
)

// testEngines maps engine name to factory for the store level tests that
// only exercise operation semantics.
var testEngines = map[string]engine.Factory{
	"Ephemeral": ephemeral.New,
	"BadgerDB":  badgerdb.New,
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Path:       filepath.Join(t.TempDir(), "store"),
		Domains:    []string{"settings", "schedule", "events", "results"},
		FastDomain: "events",
		Engine:     badgerdb.New,
	}
}

func openStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := s.SetUp(); err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func openStoreWith(t *testing.T, factory engine.Factory) *Store {
	t.Helper()
	cfg := testConfig(t)
	cfg.Engine = factory
	return openStore(t, cfg)
}

func mustPut(t *testing.T, s *Store, domain, key string, value []byte) {
	t.Helper()
	if err := s.Put(domain, key, value); err != nil {
		t.Fatalf("Failed to put %s/%s: %v", domain, key, err)
	}
}

func mustGet(t *testing.T, s *Store, domain, key string) ([]byte, bool) {
	t.Helper()
	value, found, err := s.Get(domain, key)
	if err != nil {
		t.Fatalf("Failed to get %s/%s: %v", domain, key, err)
	}
	return value, found
}

// retCode extracts the store return code from an error.
func retCode(t *testing.T, err error) store.RetCode {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected an error, got nil")
	}
	var serr *store.Error
	if !errors.As(err, &serr) {
		t.Fatalf("Expected a store error, got %T: %v", err, err)
	}
	return serr.Code
}

// --------------------------------------------------------------------------
// Construction and Lifecycle
// --------------------------------------------------------------------------

// TestNewValidation tests that invalid configurations are rejected at
// construction time.
func TestNewValidation(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
	}{
		{
			name: "Missing engine factory",
			cfg:  Config{Path: "/tmp/x"},
		},
		{
			name: "Missing path",
			cfg:  Config{Engine: ephemeral.New},
		},
		{
			name: "Duplicate domain",
			cfg: Config{
				Path:    "/tmp/x",
				Domains: []string{"settings", "settings"},
				Engine:  ephemeral.New,
			},
		},
		{
			name: "Invalid domain name",
			cfg: Config{
				Path:    "/tmp/x",
				Domains: []string{""},
				Engine:  ephemeral.New,
			},
		},
		{
			name: "Fast domain not in domain list",
			cfg: Config{
				Path:       "/tmp/x",
				Domains:    []string{"settings"},
				FastDomain: "events",
				Engine:     ephemeral.New,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			if code := retCode(t, err); code != store.RetCConfigError {
				t.Errorf("Expected ConfigError, got %s", code)
			}
		})
	}
}

// TestNewDefaults tests that an empty domain list selects the default
// domain set plus the implicit default domain.
func TestNewDefaults(t *testing.T) {
	s, err := New(Config{
		Path:       "/tmp/x",
		FastDomain: DefaultFastDomain,
		Engine:     ephemeral.New,
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if expected := len(DefaultDomains) + 1; len(s.descriptors) != expected {
		t.Errorf("Expected %d partitions, got %d", expected, len(s.descriptors))
	}
	if s.descriptors[0].Name != defaultDomain {
		t.Errorf("Expected the implicit default domain first, got %q", s.descriptors[0].Name)
	}
	for _, domain := range DefaultDomains {
		if !containsDescriptor(s.descriptors, domain) {
			t.Errorf("Expected domain %q in the descriptor set", domain)
		}
	}
}

// TestLifecycleStates tests the state transitions of SetUp and Close and
// that a writable open restricts the directory permissions.
func TestLifecycleStates(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if state := s.State(); state != StateClosed {
		t.Errorf("Expected state Closed before SetUp, got %s", state)
	}

	if err := s.SetUp(); err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if state := s.State(); state != StateOpen {
		t.Errorf("Expected state Open after SetUp, got %s", state)
	}

	fi, err := os.Stat(cfg.Path)
	if err != nil {
		t.Fatalf("Failed to stat store path: %v", err)
	}
	if perm := fi.Mode().Perm(); perm != 0700 {
		t.Errorf("Expected permissions 0700 on the store path, got %04o", perm)
	}

	s.Close()
	if state := s.State(); state != StateClosed {
		t.Errorf("Expected state Closed after Close, got %s", state)
	}

	// Closing twice must be harmless.
	s.Close()
}

// TestNotOpened tests that every operation on a store that was never
// opened fails with NotOpened.
func TestNotOpened(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, _, err := s.Get("settings", "k"); retCode(t, err) != store.RetCNotOpened {
		t.Errorf("Expected NotOpened from Get, got %v", err)
	}
	if _, _, err := s.GetInt("settings", "k"); retCode(t, err) != store.RetCNotOpened {
		t.Errorf("Expected NotOpened from GetInt, got %v", err)
	}
	if err := s.Put("settings", "k", []byte("v")); retCode(t, err) != store.RetCNotOpened {
		t.Errorf("Expected NotOpened from Put, got %v", err)
	}
	if err := s.PutInt("settings", "k", 1); retCode(t, err) != store.RetCNotOpened {
		t.Errorf("Expected NotOpened from PutInt, got %v", err)
	}
	if err := s.PutBatch("settings", nil); retCode(t, err) != store.RetCNotOpened {
		t.Errorf("Expected NotOpened from PutBatch, got %v", err)
	}
	if err := s.Remove("settings", "k"); retCode(t, err) != store.RetCNotOpened {
		t.Errorf("Expected NotOpened from Remove, got %v", err)
	}
	if err := s.RemoveRange("settings", "a", "b"); retCode(t, err) != store.RetCNotOpened {
		t.Errorf("Expected NotOpened from RemoveRange, got %v", err)
	}
	if _, err := s.Scan("settings", "", 0); retCode(t, err) != store.RetCNotOpened {
		t.Errorf("Expected NotOpened from Scan, got %v", err)
	}

	// GetStoreInfo works on a closed store and reports its state.
	info, err := s.GetStoreInfo()
	if err != nil {
		t.Fatalf("Failed to get store info: %v", err)
	}
	if info.State != "Closed" {
		t.Errorf("Expected state Closed in store info, got %s", info.State)
	}
}

// TestDomainNotFound tests that operations against an unknown domain fail
// with DomainNotFound.
func TestDomainNotFound(t *testing.T) {
	s := openStoreWith(t, ephemeral.New)

	if _, _, err := s.Get("nope", "k"); retCode(t, err) != store.RetCDomainNotFound {
		t.Errorf("Expected DomainNotFound from Get, got %v", err)
	}
	if err := s.Put("nope", "k", []byte("v")); retCode(t, err) != store.RetCDomainNotFound {
		t.Errorf("Expected DomainNotFound from Put, got %v", err)
	}
	if err := s.Remove("nope", "k"); retCode(t, err) != store.RetCDomainNotFound {
		t.Errorf("Expected DomainNotFound from Remove, got %v", err)
	}
	if err := s.RemoveRange("nope", "a", "b"); retCode(t, err) != store.RetCDomainNotFound {
		t.Errorf("Expected DomainNotFound from RemoveRange, got %v", err)
	}
	if _, err := s.Scan("nope", "", 0); retCode(t, err) != store.RetCDomainNotFound {
		t.Errorf("Expected DomainNotFound from Scan, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Operation Semantics
// --------------------------------------------------------------------------

// TestPutGetRoundTrip tests basic write and read behavior across engines.
func TestPutGetRoundTrip(t *testing.T) {
	for name, factory := range testEngines {
		t.Run(name, func(t *testing.T) {
			s := openStoreWith(t, factory)

			// A key that was never written is absent, not an error.
			if value, found := mustGet(t, s, "settings", "missing"); found {
				t.Errorf("Expected missing key to be absent, got %q", value)
			}

			// Simple round trip.
			mustPut(t, s, "settings", "node_key", []byte("abc123"))
			if value, found := mustGet(t, s, "settings", "node_key"); !found {
				t.Errorf("Expected key to be found after put")
			} else if !bytes.Equal(value, []byte("abc123")) {
				t.Errorf("Expected value 'abc123', got %q", value)
			}

			// Empty value round trip.
			mustPut(t, s, "settings", "empty", []byte{})
			if value, found := mustGet(t, s, "settings", "empty"); !found {
				t.Errorf("Expected empty value to be found")
			} else if len(value) != 0 {
				t.Errorf("Expected empty value, got %q", value)
			}

			// Empty key round trip.
			mustPut(t, s, "settings", "", []byte("empty key"))
			if value, found := mustGet(t, s, "settings", ""); !found {
				t.Errorf("Expected empty key to be found")
			} else if string(value) != "empty key" {
				t.Errorf("Expected value 'empty key', got %q", value)
			}

			// Binary value with zero bytes.
			binary := []byte{0x00, 0xff, 0x00, 0x42}
			mustPut(t, s, "settings", "binary", binary)
			if value, _ := mustGet(t, s, "settings", "binary"); !bytes.Equal(value, binary) {
				t.Errorf("Expected binary value %v, got %v", binary, value)
			}

			// Overwrite replaces the previous value.
			mustPut(t, s, "settings", "node_key", []byte("xyz789"))
			if value, _ := mustGet(t, s, "settings", "node_key"); string(value) != "xyz789" {
				t.Errorf("Expected overwritten value 'xyz789', got %q", value)
			}
		})
	}
}

// TestGetInt tests the integer convenience accessors.
func TestGetInt(t *testing.T) {
	s := openStoreWith(t, ephemeral.New)

	for _, expected := range []int64{0, 1, -1, 42, -9000, 1<<62 - 1} {
		if err := s.PutInt("settings", "counter", expected); err != nil {
			t.Fatalf("Failed to put int %d: %v", expected, err)
		}
		value, found, err := s.GetInt("settings", "counter")
		if err != nil {
			t.Fatalf("Failed to get int: %v", err)
		}
		if !found {
			t.Fatalf("Expected counter to be found")
		}
		if value != expected {
			t.Errorf("Expected %d, got %d", expected, value)
		}
	}

	// The decimal text encoding is readable through Get.
	if value, _ := mustGet(t, s, "settings", "counter"); string(value) != "4611686018427387903" {
		t.Errorf("Expected decimal text encoding, got %q", value)
	}

	// A missing key is absent, not an error.
	if _, found, err := s.GetInt("settings", "missing"); err != nil || found {
		t.Errorf("Expected missing key without error, got found=%v err=%v", found, err)
	}

	// A value that is not a decimal integer fails to deserialize.
	mustPut(t, s, "settings", "text", []byte("not a number"))
	if _, _, err := s.GetInt("settings", "text"); retCode(t, err) != store.RetCDeserialization {
		t.Errorf("Expected Deserialization error, got %v", err)
	}
}

// TestPutBatch tests multi-pair writes.
func TestPutBatch(t *testing.T) {
	s := openStoreWith(t, ephemeral.New)

	pairs := []store.Pair{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
		{Key: "c", Value: []byte("3")},
	}
	if err := s.PutBatch("schedule", pairs); err != nil {
		t.Fatalf("Failed to put batch: %v", err)
	}
	for _, pair := range pairs {
		if value, found := mustGet(t, s, "schedule", pair.Key); !found {
			t.Errorf("Expected key %q after batch", pair.Key)
		} else if !bytes.Equal(value, pair.Value) {
			t.Errorf("Expected value %q for key %q, got %q", pair.Value, pair.Key, value)
		}
	}

	// An empty batch is a valid no-op.
	if err := s.PutBatch("schedule", nil); err != nil {
		t.Errorf("Expected empty batch to succeed, got %v", err)
	}

	// A batch against an unknown domain fails.
	if err := s.PutBatch("nope", pairs); retCode(t, err) != store.RetCDomainNotFound {
		t.Errorf("Expected DomainNotFound, got %v", err)
	}
}

// failingEngine wraps a real engine and fails batch commits on demand.
type failingEngine struct {
	engine.KVEngine
	failCommits atomic.Bool
}

func (f *failingEngine) NewBatch(p engine.Partition) engine.Batch {
	return &failingBatch{Batch: f.KVEngine.NewBatch(p), owner: f}
}

type failingBatch struct {
	engine.Batch
	owner *failingEngine
}

func (b *failingBatch) Commit(wo engine.WriteOptions) error {
	if b.owner.failCommits.Load() {
		return engine.NewStatus(engine.StatusIOError, "write batch: no space left on device")
	}
	return b.Batch.Commit(wo)
}

// TestPutBatchAtomicity tests that a batch whose commit fails applies
// none of its pairs and that the failure surfaces as a trimmed IO error.
func TestPutBatchAtomicity(t *testing.T) {
	failing := &failingEngine{}
	factory := func(path string, opts engine.OpenOptions) (engine.KVEngine, error) {
		eng, err := ephemeral.New(path, opts)
		if err != nil {
			return nil, err
		}
		failing.KVEngine = eng
		return failing, nil
	}
	s := openStoreWith(t, factory)

	mustPut(t, s, "settings", "before", []byte("kept"))

	failing.failCommits.Store(true)
	err := s.PutBatch("settings", []store.Pair{
		{Key: "b1", Value: []byte("1")},
		{Key: "b2", Value: []byte("2")},
	})
	if code := retCode(t, err); code != store.RetCIOError {
		t.Fatalf("Expected IOError, got %s", code)
	}

	// The engine call sites are trimmed out of the message.
	var serr *store.Error
	errors.As(err, &serr)
	if serr.Msg != "IOError: no space left on device" {
		t.Errorf("Expected trimmed IO error message, got %q", serr.Msg)
	}

	// Nothing of the failed batch was applied.
	if _, found := mustGet(t, s, "settings", "b1"); found {
		t.Errorf("Expected b1 to be absent after failed batch")
	}
	if _, found := mustGet(t, s, "settings", "b2"); found {
		t.Errorf("Expected b2 to be absent after failed batch")
	}
	if _, found := mustGet(t, s, "settings", "before"); !found {
		t.Errorf("Expected unrelated key to survive the failed batch")
	}

	// The store recovers once commits work again.
	failing.failCommits.Store(false)
	mustPut(t, s, "settings", "b1", []byte("1"))
	if _, found := mustGet(t, s, "settings", "b1"); !found {
		t.Errorf("Expected b1 after the engine recovered")
	}
}

// TestRemove tests single key deletion.
func TestRemove(t *testing.T) {
	for name, factory := range testEngines {
		t.Run(name, func(t *testing.T) {
			s := openStoreWith(t, factory)

			mustPut(t, s, "settings", "k", []byte("v"))
			if err := s.Remove("settings", "k"); err != nil {
				t.Fatalf("Failed to remove key: %v", err)
			}
			if _, found := mustGet(t, s, "settings", "k"); found {
				t.Errorf("Expected key to be gone after remove")
			}

			// Removing an absent key is not an error.
			if err := s.Remove("settings", "absent"); err != nil {
				t.Errorf("Expected removing an absent key to succeed, got %v", err)
			}
		})
	}
}

// TestRemoveRange tests range deletion including its inclusive upper
// bound and the inverted-bounds no-op.
func TestRemoveRange(t *testing.T) {
	for name, factory := range testEngines {
		t.Run(name, func(t *testing.T) {
			seed := func(s *Store) {
				for _, key := range []string{"a", "b", "c", "d"} {
					mustPut(t, s, "results", key, []byte("v"))
				}
			}

			// The upper bound is part of the removed range.
			s := openStoreWith(t, factory)
			seed(s)
			if err := s.RemoveRange("results", "a", "c"); err != nil {
				t.Fatalf("Failed to remove range: %v", err)
			}
			keys, err := s.Scan("results", "", 0)
			if err != nil {
				t.Fatalf("Failed to scan: %v", err)
			}
			if len(keys) != 1 || keys[0] != "d" {
				t.Errorf("Expected only 'd' to survive, got %v", keys)
			}

			// Inverted bounds leave the domain untouched.
			s = openStoreWith(t, factory)
			seed(s)
			if err := s.RemoveRange("results", "c", "a"); err != nil {
				t.Fatalf("Failed to remove inverted range: %v", err)
			}
			keys, err = s.Scan("results", "", 0)
			if err != nil {
				t.Fatalf("Failed to scan: %v", err)
			}
			if len(keys) != 4 {
				t.Errorf("Expected all keys to survive inverted bounds, got %v", keys)
			}

			// Equal bounds remove exactly that key.
			s = openStoreWith(t, factory)
			seed(s)
			if err := s.RemoveRange("results", "b", "b"); err != nil {
				t.Fatalf("Failed to remove single key range: %v", err)
			}
			keys, err = s.Scan("results", "", 0)
			if err != nil {
				t.Fatalf("Failed to scan: %v", err)
			}
			if len(keys) != 3 || keys[0] != "a" || keys[1] != "c" || keys[2] != "d" {
				t.Errorf("Expected [a c d], got %v", keys)
			}
		})
	}
}

// TestScan tests prefix scans, ordering and the result limit.
func TestScan(t *testing.T) {
	for name, factory := range testEngines {
		t.Run(name, func(t *testing.T) {
			s := openStoreWith(t, factory)

			// Insert out of order, scans sort ascending.
			for _, key := range []string{"b1", "a3", "a1", "a2"} {
				mustPut(t, s, "schedule", key, []byte("v"))
			}

			keys, err := s.Scan("schedule", "", 0)
			if err != nil {
				t.Fatalf("Failed to scan: %v", err)
			}
			expected := []string{"a1", "a2", "a3", "b1"}
			if len(keys) != len(expected) {
				t.Fatalf("Expected %d keys, got %v", len(expected), keys)
			}
			for i, key := range expected {
				if keys[i] != key {
					t.Errorf("Expected key %q at position %d, got %q", key, i, keys[i])
				}
			}

			// Prefix filter with limit.
			keys, err = s.Scan("schedule", "a", 2)
			if err != nil {
				t.Fatalf("Failed to scan with prefix: %v", err)
			}
			if len(keys) != 2 || keys[0] != "a1" || keys[1] != "a2" {
				t.Errorf("Expected [a1 a2], got %v", keys)
			}

			// A limit beyond the match count returns everything matching.
			keys, err = s.Scan("schedule", "a", 100)
			if err != nil {
				t.Fatalf("Failed to scan with large limit: %v", err)
			}
			if len(keys) != 3 {
				t.Errorf("Expected 3 keys for prefix 'a', got %v", keys)
			}

			// A prefix without matches yields an empty result, not an error.
			keys, err = s.Scan("schedule", "z", 0)
			if err != nil {
				t.Fatalf("Failed to scan without matches: %v", err)
			}
			if len(keys) != 0 {
				t.Errorf("Expected no keys for prefix 'z', got %v", keys)
			}
		})
	}
}

// TestDomainIsolation tests that domains do not share a key space.
func TestDomainIsolation(t *testing.T) {
	s := openStoreWith(t, ephemeral.New)

	mustPut(t, s, "settings", "shared", []byte("from settings"))
	mustPut(t, s, "schedule", "shared", []byte("from schedule"))
	mustPut(t, s, "default", "shared", []byte("from default"))

	if value, _ := mustGet(t, s, "settings", "shared"); string(value) != "from settings" {
		t.Errorf("Expected settings value, got %q", value)
	}
	if value, _ := mustGet(t, s, "schedule", "shared"); string(value) != "from schedule" {
		t.Errorf("Expected schedule value, got %q", value)
	}

	if err := s.Remove("settings", "shared"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if _, found := mustGet(t, s, "settings", "shared"); found {
		t.Errorf("Expected settings key to be gone")
	}
	if _, found := mustGet(t, s, "schedule", "shared"); !found {
		t.Errorf("Expected schedule key to survive a remove in settings")
	}

	// Scans stay inside their domain.
	keys, err := s.Scan("default", "", 0)
	if err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}
	if len(keys) != 1 || keys[0] != "shared" {
		t.Errorf("Expected exactly the default domain key, got %v", keys)
	}
}

// TestFastDomainWrites tests that the fast domain behaves like any other
// domain semantically.
func TestFastDomainWrites(t *testing.T) {
	s := openStoreWith(t, badgerdb.New)

	for _, key := range []string{"0001", "0002", "0003"} {
		mustPut(t, s, "events", key, []byte("payload-"+key))
	}
	keys, err := s.Scan("events", "", 0)
	if err != nil {
		t.Fatalf("Failed to scan events: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("Expected 3 event keys, got %v", keys)
	}
	if err := s.RemoveRange("events", "0001", "0002"); err != nil {
		t.Fatalf("Failed to expire events: %v", err)
	}
	keys, err = s.Scan("events", "", 0)
	if err != nil {
		t.Fatalf("Failed to scan events: %v", err)
	}
	if len(keys) != 1 || keys[0] != "0003" {
		t.Errorf("Expected only '0003' to survive, got %v", keys)
	}
}

// --------------------------------------------------------------------------
// Read-Only Degradation
// --------------------------------------------------------------------------

// lockedFactory simulates another process holding the store: writable
// opens fail, read-only opens pass through to the real engine.
func lockedFactory(inner engine.Factory) engine.Factory {
	return func(path string, opts engine.OpenOptions) (engine.KVEngine, error) {
		if !opts.ReadOnly {
			return nil, engine.NewStatus(engine.StatusIOError,
				"store directory is locked by another process")
		}
		return inner(path, opts)
	}
}

// TestReadOnlyDegradation tests that a store that cannot be opened
// writable degrades to read-only operation where reads work and writes
// are dropped silently.
func TestReadOnlyDegradation(t *testing.T) {
	cfg := testConfig(t)
	t.Cleanup(events.Enable)

	// Create the store on disk first.
	s := openStore(t, cfg)
	mustPut(t, s, "settings", "k", []byte("v"))
	s.Close()

	// Reopen through a factory that refuses writable access.
	cfg.Engine = lockedFactory(badgerdb.New)
	ro := openStore(t, cfg)

	if state := ro.State(); state != StateOpenReadOnly {
		t.Fatalf("Expected state OpenReadOnly, got %s", state)
	}

	// The degrade raises the event recording kill switch.
	if !events.IsDisabled() {
		t.Errorf("Expected event recording to be disabled for a read-only store")
	}

	// Reads work.
	if value, found := mustGet(t, ro, "settings", "k"); !found {
		t.Errorf("Expected existing key to be readable")
	} else if string(value) != "v" {
		t.Errorf("Expected value 'v', got %q", value)
	}

	// Writes succeed without writing.
	if err := ro.Put("settings", "new", []byte("dropped")); err != nil {
		t.Fatalf("Expected dropped put to succeed, got %v", err)
	}
	if _, found := mustGet(t, ro, "settings", "new"); found {
		t.Errorf("Expected dropped put to be invisible")
	}

	// Removes are dropped as well.
	if err := ro.Remove("settings", "k"); err != nil {
		t.Fatalf("Expected dropped remove to succeed, got %v", err)
	}
	if _, found := mustGet(t, ro, "settings", "k"); !found {
		t.Errorf("Expected key to survive a dropped remove")
	}
	if err := ro.RemoveRange("settings", "a", "z"); err != nil {
		t.Fatalf("Expected dropped remove range to succeed, got %v", err)
	}

	// The write shortcut comes before domain resolution.
	if err := ro.PutBatch("no-such-domain", []store.Pair{{Key: "k"}}); err != nil {
		t.Errorf("Expected dropped batch to succeed for any domain, got %v", err)
	}

	// Reads still validate their domain.
	if _, _, err := ro.Get("no-such-domain", "k"); retCode(t, err) != store.RetCDomainNotFound {
		t.Errorf("Expected DomainNotFound for reads, got %v", err)
	}

	info, err := ro.GetStoreInfo()
	if err != nil {
		t.Fatalf("Failed to get store info: %v", err)
	}
	if !info.ReadOnly || info.State != "OpenReadOnly" {
		t.Errorf("Expected read-only store info, got %+v", info)
	}
}

// TestWriteRequired tests that WriteRequired turns the read-only
// degradation into a hard open failure.
func TestWriteRequired(t *testing.T) {
	cfg := testConfig(t)

	s := openStore(t, cfg)
	s.Close()

	cfg.Engine = lockedFactory(badgerdb.New)
	cfg.WriteRequired = true
	s2, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := s2.SetUp(); retCode(t, err) != store.RetCOpenFailed {
		t.Errorf("Expected OpenFailed, got %v", err)
	}
	if state := s2.State(); state != StateClosed {
		t.Errorf("Expected state Closed after failed SetUp, got %s", state)
	}
}

// TestUnreadablePath tests that a store path the process cannot read is
// rejected before any open attempt.
func TestUnreadablePath(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission checks do not apply")
	}

	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Path, 0700); err != nil {
		t.Fatalf("Failed to create store path: %v", err)
	}
	if err := os.Chmod(cfg.Path, 0000); err != nil {
		t.Fatalf("Failed to chmod store path: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(cfg.Path, 0700) })

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := s.SetUp(); retCode(t, err) != store.RetCConfigError {
		t.Errorf("Expected ConfigError, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Corruption Handling
// --------------------------------------------------------------------------

// waitCorrupted polls the corruption flag until it is set or the timeout
// expires.
func waitCorrupted(t *testing.T, s *Store) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.IsCorrupted() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Expected the corruption flag to be set")
}

// TestCorruptionFlagFromLogLines tests that an engine log line carrying a
// corruption marker sets the flag while benign lines do not.
func TestCorruptionFlagFromLogLines(t *testing.T) {
	var sink engine.LogSink
	factory := func(path string, opts engine.OpenOptions) (engine.KVEngine, error) {
		sink = opts.LogSink
		return ephemeral.New(path, opts)
	}
	s := openStoreWith(t, factory)
	if sink == nil {
		t.Fatalf("Expected the store to hand the engine a log sink")
	}

	// Benign engine chatter does not flag anything.
	sink.Warningf("compaction finished for level %d", 2)
	sink.Infof("opened %d tables", 7)
	time.Sleep(50 * time.Millisecond)
	if s.IsCorrupted() {
		t.Fatalf("Expected benign log lines to leave the flag unset")
	}

	// A corruption marker sets the flag, even at low severity.
	sink.Errorf("Corruption: checksum mismatch in table %06d", 123)
	waitCorrupted(t, s)

	// Clear the flag so the cleanup close does not quarantine anything.
	s.SetCorrupted(false)
}

// TestRepairOnClose tests that a corruption flag set while the store is
// open quarantines the directory on close and clears the flag.
func TestRepairOnClose(t *testing.T) {
	cfg := testConfig(t)
	s := openStore(t, cfg)
	mustPut(t, s, "settings", "k", []byte("v"))

	s.SetCorrupted(true)
	s.Close()

	if s.IsCorrupted() {
		t.Errorf("Expected the corruption flag to be cleared by close")
	}
	if pathExists(cfg.Path) {
		t.Errorf("Expected the store path to be moved away")
	}
	backup := cfg.Path + backupSuffix
	if !pathExists(backup) {
		t.Fatalf("Expected the store to be quarantined at %s", backup)
	}

	// The quarantined directory still holds the store files.
	entries, err := os.ReadDir(backup)
	if err != nil {
		t.Fatalf("Failed to read backup directory: %v", err)
	}
	if len(entries) == 0 {
		t.Errorf("Expected the backup to contain the old store files")
	}

	// A fresh SetUp starts from an empty directory.
	if err := s.SetUp(); err != nil {
		t.Fatalf("Failed to reopen after repair: %v", err)
	}
	if _, found := mustGet(t, s, "settings", "k"); found {
		t.Errorf("Expected the reopened store to start empty")
	}
}

// TestRepairReplacesOldBackup tests that a repair removes a backup left
// behind by an earlier repair before quarantining the current store.
func TestRepairReplacesOldBackup(t *testing.T) {
	cfg := testConfig(t)
	backup := cfg.Path + backupSuffix

	// Plant an old backup with a sentinel file.
	if err := os.MkdirAll(backup, 0700); err != nil {
		t.Fatalf("Failed to create old backup: %v", err)
	}
	sentinel := filepath.Join(backup, "sentinel")
	if err := os.WriteFile(sentinel, []byte("old"), 0600); err != nil {
		t.Fatalf("Failed to write sentinel: %v", err)
	}

	s := openStore(t, cfg)
	mustPut(t, s, "settings", "k", []byte("v"))
	s.SetCorrupted(true)
	s.Close()

	if !pathExists(backup) {
		t.Fatalf("Expected a backup at %s", backup)
	}
	if pathExists(sentinel) {
		t.Errorf("Expected the old backup to be replaced, sentinel survived")
	}
}

// TestRepairAtOpen tests that a store whose engine refuses to open with a
// corruption error is quarantined and reopened empty in one SetUp call.
func TestRepairAtOpen(t *testing.T) {
	cfg := testConfig(t)

	// Create a store with some content.
	s := openStore(t, cfg)
	mustPut(t, s, "settings", "k", []byte("v"))
	s.Close()

	// Wreck the manifest so the next open fails with a corruption status.
	manifest := filepath.Join(cfg.Path, "MANIFEST")
	if err := os.WriteFile(manifest, []byte("this is definitely not a manifest file"), 0600); err != nil {
		t.Fatalf("Failed to corrupt manifest: %v", err)
	}

	s2, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := s2.SetUp(); err != nil {
		t.Fatalf("Expected SetUp to repair and retry, got %v", err)
	}
	t.Cleanup(s2.Close)

	if state := s2.State(); state != StateOpen {
		t.Errorf("Expected state Open after repair, got %s", state)
	}
	if s2.IsCorrupted() {
		t.Errorf("Expected the corruption flag to be clear after repair")
	}

	// The corrupt store was preserved for inspection.
	backup := cfg.Path + backupSuffix
	if !pathExists(backup) {
		t.Fatalf("Expected the corrupt store at %s", backup)
	}
	garbage, err := os.ReadFile(filepath.Join(backup, "MANIFEST"))
	if err != nil {
		t.Fatalf("Failed to read quarantined manifest: %v", err)
	}
	if string(garbage) != "this is definitely not a manifest file" {
		t.Errorf("Expected the quarantined manifest to be untouched")
	}

	// The reopened store is empty and writable.
	if _, found := mustGet(t, s2, "settings", "k"); found {
		t.Errorf("Expected the repaired store to start empty")
	}
	mustPut(t, s2, "settings", "fresh", []byte("start"))
	if _, found := mustGet(t, s2, "settings", "fresh"); !found {
		t.Errorf("Expected the repaired store to accept writes")
	}
}

// --------------------------------------------------------------------------
// Persistence and Concurrency
// --------------------------------------------------------------------------

// TestPersistenceAcrossReopen tests that data survives Close and SetUp,
// both on the same instance and on a fresh one.
func TestPersistenceAcrossReopen(t *testing.T) {
	cfg := testConfig(t)

	s := openStore(t, cfg)
	mustPut(t, s, "settings", "k", []byte("v"))
	if err := s.PutInt("schedule", "interval", 3600); err != nil {
		t.Fatalf("Failed to put int: %v", err)
	}
	s.Close()

	// SetUp doubles as a reopen on the same instance.
	if err := s.SetUp(); err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	if value, found := mustGet(t, s, "settings", "k"); !found || string(value) != "v" {
		t.Errorf("Expected persisted value after reopen, got %q (found=%v)", value, found)
	}
	s.Close()

	// A fresh instance on the same path sees the same data.
	s2 := openStore(t, cfg)
	if value, found := mustGet(t, s2, "settings", "k"); !found || string(value) != "v" {
		t.Errorf("Expected persisted value in fresh instance, got %q (found=%v)", value, found)
	}
	interval, found, err := s2.GetInt("schedule", "interval")
	if err != nil || !found || interval != 3600 {
		t.Errorf("Expected persisted interval 3600, got %d (found=%v, err=%v)", interval, found, err)
	}
}

// TestGetStoreInfo tests the metadata reported for an open store.
func TestGetStoreInfo(t *testing.T) {
	cfg := testConfig(t)
	s := openStore(t, cfg)

	info, err := s.GetStoreInfo()
	if err != nil {
		t.Fatalf("Failed to get store info: %v", err)
	}
	if info.Path != cfg.Path {
		t.Errorf("Expected path %q, got %q", cfg.Path, info.Path)
	}
	if info.State != "Open" {
		t.Errorf("Expected state Open, got %s", info.State)
	}
	if info.ReadOnly || info.Corrupted {
		t.Errorf("Expected a healthy writable store, got %+v", info)
	}
	if expected := len(cfg.Domains) + 1; len(info.Domains) != expected {
		t.Errorf("Expected %d domains, got %v", expected, info.Domains)
	}
	if info.Engine.NumPartitions != len(info.Domains) {
		t.Errorf("Expected engine partition count %d, got %d",
			len(info.Domains), info.Engine.NumPartitions)
	}
}

// TestConcurrentReadsAndScans tests that reads and scans are safe under
// concurrent writers.
func TestConcurrentReadsAndScans(t *testing.T) {
	s := openStoreWith(t, ephemeral.New)

	for i := 0; i < 100; i++ {
		mustPut(t, s, "results", keyForIndex(i), []byte("seed"))
	}

	const (
		numWorkers    = 8
		opsPerWorker  = 500
		scanFrequency = 25
	)

	var (
		wg       sync.WaitGroup
		errCount atomic.Int32
	)
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := keyForIndex((worker*opsPerWorker + i) % 100)
				switch {
				case i%scanFrequency == 0:
					if _, err := s.Scan("results", "key-0", 0); err != nil {
						errCount.Add(1)
					}
				case i%2 == 0:
					if _, _, err := s.Get("results", key); err != nil {
						errCount.Add(1)
					}
				default:
					if err := s.Put("results", key, []byte("updated")); err != nil {
						errCount.Add(1)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	if count := errCount.Load(); count != 0 {
		t.Errorf("Expected no errors under concurrent access, got %d", count)
	}

	// All seeded keys are still present.
	keys, err := s.Scan("results", "", 0)
	if err != nil {
		t.Fatalf("Failed to scan after concurrent access: %v", err)
	}
	if len(keys) != 100 {
		t.Errorf("Expected 100 keys after concurrent access, got %d", len(keys))
	}
}

func keyForIndex(i int) string {
	return fmt.Sprintf("key-%02d", i)
}
