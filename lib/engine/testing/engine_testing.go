package testing

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cellardb/cellar/lib/engine"
)

// RunEngineTests runs a comprehensive test suite for a KVEngine
// implementation. The factory is called with fresh directories, engines
// opened by the suite are also closed by it.
func RunEngineTests(t *testing.T, name string, factory engine.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory)
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory)
		})

		t.Run("DeleteRange", func(t *testing.T) {
			testDeleteRange(t, factory)
		})

		t.Run("Batch", func(t *testing.T) {
			testBatch(t, factory)
		})

		t.Run("Iterator", func(t *testing.T) {
			testIterator(t, factory)
		})

		t.Run("PartitionIsolation", func(t *testing.T) {
			testPartitionIsolation(t, factory)
		})

		t.Run("DurabilityModes", func(t *testing.T) {
			testDurabilityModes(t, factory)
		})

		t.Run("Persistence", func(t *testing.T) {
			testPersistence(t, factory)
		})

		t.Run("ReadOnly", func(t *testing.T) {
			testReadOnly(t, factory)
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory)
		})

		t.Run("ConcurrentAccess", func(t *testing.T) {
			testConcurrentAccess(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the engine supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, eng engine.KVEngine, feature engine.Feature) {
	if !eng.SupportsFeature(feature) {
		t.Skip()
	}
}

func descriptors(names ...string) []engine.PartitionDescriptor {
	descs := make([]engine.PartitionDescriptor, len(names))
	for i, name := range names {
		descs[i] = engine.PartitionDescriptor{Name: name}
	}
	return descs
}

// open creates an engine at dir with the given partitions and fails the
// test on error.
func open(t testing.TB, factory engine.Factory, dir string, names ...string) engine.KVEngine {
	opts := engine.DefaultOpenOptions()
	opts.Partitions = descriptors(names...)

	eng, err := factory(dir, opts)
	if err != nil {
		t.Fatalf("Unexpected error opening engine: %v", err)
	}
	return eng
}

func openReadOnly(t testing.TB, factory engine.Factory, dir string, names ...string) engine.KVEngine {
	opts := engine.DefaultOpenOptions()
	opts.Partitions = descriptors(names...)
	opts.ReadOnly = true

	eng, err := factory(dir, opts)
	if err != nil {
		t.Fatalf("Unexpected error opening engine read-only: %v", err)
	}
	return eng
}

func mustPut(t testing.TB, eng engine.KVEngine, p engine.Partition, key string, value []byte) {
	if err := eng.Put(p, key, value, engine.WriteOptions{}); err != nil {
		t.Fatalf("Unexpected error on Put(%q): %v", key, err)
	}
}

func mustGet(t testing.TB, eng engine.KVEngine, p engine.Partition, key string) ([]byte, bool) {
	value, found, err := eng.Get(p, key)
	if err != nil {
		t.Fatalf("Unexpected error on Get(%q): %v", key, err)
	}
	return value, found
}

// collectKeys drains an iterator into a key slice.
func collectKeys(t testing.TB, eng engine.KVEngine, p engine.Partition) []string {
	it, err := eng.NewIterator(p, engine.ReadOptions{})
	if err != nil {
		t.Fatalf("Unexpected error creating iterator: %v", err)
	}
	defer it.Close()

	var keys []string
	for it.SeekToFirst(); it.Valid(); it.Next() {
		keys = append(keys, it.Key())
	}
	return keys
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "default")
	defer eng.Close()

	p := eng.Partitions()[0]

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	mustPut(t, eng, p, testKey, testValue1)

	result, exists := mustGet(t, eng, p, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Put", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	mustPut(t, eng, p, testKey, testValue2)

	result, exists = mustGet(t, eng, p, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Put", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected updated value %s, got %s", testValue2, result)
	}

	_, exists = mustGet(t, eng, p, "nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return found=false")
	}

	retrievedValue, _ := mustGet(t, eng, p, testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := mustGet(t, eng, p, testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}
}

func testEdgeCases(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "default")
	defer eng.Close()

	p := eng.Partitions()[0]

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")

	mustPut(t, eng, p, emptyKey, emptyKeyValue)

	result, exists := mustGet(t, eng, p, emptyKey)
	if !exists {
		t.Errorf("Empty key not found after Put")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	emptyValueKey := "empty-value-key"
	var emptyValue []byte

	mustPut(t, eng, p, emptyValueKey, emptyValue)

	result, exists = mustGet(t, eng, p, emptyValueKey)
	if !exists {
		t.Errorf("Key for empty value not found after Put")
	} else if len(result) != 0 {
		t.Errorf("Empty value resulted in non-empty value: %v", result)
	}

	largeKey := string(make([]byte, 1000))
	largeKeyValue := []byte("value for large key")

	mustPut(t, eng, p, largeKey, largeKeyValue)

	result, exists = mustGet(t, eng, p, largeKey)
	if !exists {
		t.Errorf("Large key not found after Put")
	} else if !bytes.Equal(result, largeKeyValue) {
		t.Errorf("Value mismatch for large key")
	}

	largeValueKey := "large-value-key"
	largeValue := make([]byte, 256*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}

	mustPut(t, eng, p, largeValueKey, largeValue)

	result, exists = mustGet(t, eng, p, largeValueKey)
	if !exists {
		t.Errorf("Key for large value not found after Put")
	} else if !bytes.Equal(result, largeValue) {
		t.Errorf("Large value mismatch")
	}
}

func testDelete(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "default")
	defer eng.Close()

	p := eng.Partitions()[0]

	testKey := "delete-test-key"
	testValue := []byte("delete-test-value")

	mustPut(t, eng, p, testKey, testValue)

	_, exists := mustGet(t, eng, p, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Put", testKey)
	}

	if err := eng.Delete(p, testKey, engine.WriteOptions{}); err != nil {
		t.Errorf("Unexpected error on Delete: %v", err)
	}

	_, exists = mustGet(t, eng, p, testKey)
	if exists {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	// deleting an absent key must not fail
	if err := eng.Delete(p, "nonexistent-key", engine.WriteOptions{}); err != nil {
		t.Errorf("Unexpected error deleting nonexistent key: %v", err)
	}
}

func testDeleteRange(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "default")
	defer eng.Close()

	requireFeature(t, eng, engine.FeatureRangeDelete)

	p := eng.Partitions()[0]

	for _, key := range []string{"a", "b", "c", "d"} {
		mustPut(t, eng, p, key, []byte("value-"+key))
	}

	// [a, c) removes a and b but keeps c
	if err := eng.DeleteRange(p, "a", "c", engine.WriteOptions{}); err != nil {
		t.Errorf("Unexpected error on DeleteRange: %v", err)
	}

	keys := collectKeys(t, eng, p)
	expected := []string{"c", "d"}
	if len(keys) != len(expected) {
		t.Fatalf("Expected keys %v after DeleteRange, got %v", expected, keys)
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Errorf("Expected key %s at position %d, got %s", key, i, keys[i])
		}
	}

	// an empty interval must be a no-op
	if err := eng.DeleteRange(p, "z", "a", engine.WriteOptions{}); err != nil {
		t.Errorf("Unexpected error on empty-interval DeleteRange: %v", err)
	}
	if err := eng.DeleteRange(p, "c", "c", engine.WriteOptions{}); err != nil {
		t.Errorf("Unexpected error on empty-interval DeleteRange: %v", err)
	}

	keys = collectKeys(t, eng, p)
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys after no-op DeleteRange, got %v", keys)
	}
}

func testBatch(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "default")
	defer eng.Close()

	p := eng.Partitions()[0]

	mustPut(t, eng, p, "preexisting", []byte("doomed"))

	batch := eng.NewBatch(p)
	for i := 0; i < 10; i++ {
		batch.Put(fmt.Sprintf("batch-key-%d", i), []byte(fmt.Sprintf("batch-value-%d", i)))
	}
	batch.Delete("preexisting")

	if batch.Len() != 11 {
		t.Errorf("Expected batch length 11, got %d", batch.Len())
	}

	// nothing must be visible before the commit
	_, exists := mustGet(t, eng, p, "batch-key-0")
	if exists {
		t.Errorf("Expected batched write to be invisible before Commit")
	}

	if err := batch.Commit(engine.WriteOptions{}); err != nil {
		t.Fatalf("Unexpected error on Commit: %v", err)
	}

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("batch-key-%d", i)
		expectedValue := []byte(fmt.Sprintf("batch-value-%d", i))

		value, exists := mustGet(t, eng, p, key)
		if !exists {
			t.Errorf("Key %s not found after Commit", key)
			continue
		}
		if !bytes.Equal(value, expectedValue) {
			t.Errorf("Value mismatch for key %s: expected %s, got %s", key, expectedValue, value)
		}
	}

	_, exists = mustGet(t, eng, p, "preexisting")
	if exists {
		t.Errorf("Expected batched Delete to remove preexisting key")
	}

	// an empty batch commit must succeed
	if err := eng.NewBatch(p).Commit(engine.WriteOptions{}); err != nil {
		t.Errorf("Unexpected error committing empty batch: %v", err)
	}
}

func testIterator(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "default")
	defer eng.Close()

	p := eng.Partitions()[0]

	// insert out of order, iteration must come back sorted
	inserted := []string{"delta", "alpha", "charlie", "bravo"}
	for _, key := range inserted {
		mustPut(t, eng, p, key, []byte("value-"+key))
	}

	it, err := eng.NewIterator(p, engine.ReadOptions{FillCache: true})
	if err != nil {
		t.Fatalf("Unexpected error creating iterator: %v", err)
	}
	defer it.Close()

	expected := []string{"alpha", "bravo", "charlie", "delta"}

	var keys []string
	for it.SeekToFirst(); it.Valid(); it.Next() {
		keys = append(keys, it.Key())

		value, err := it.Value()
		if err != nil {
			t.Fatalf("Unexpected error reading value: %v", err)
		}
		if !bytes.Equal(value, []byte("value-"+it.Key())) {
			t.Errorf("Value mismatch for key %s: got %s", it.Key(), value)
		}
	}

	if len(keys) != len(expected) {
		t.Fatalf("Expected keys %v, got %v", expected, keys)
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Errorf("Expected key %s at position %d, got %s", key, i, keys[i])
		}
	}

	// SeekToFirst must rewind a consumed iterator
	count := 0
	for it.SeekToFirst(); it.Valid(); it.Next() {
		count++
	}
	if count != len(expected) {
		t.Errorf("Expected %d keys after rewind, got %d", len(expected), count)
	}
}

func testPartitionIsolation(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "first", "second")
	defer eng.Close()

	first := eng.Partitions()[0]
	second := eng.Partitions()[1]

	sharedKey := "shared-key"

	mustPut(t, eng, first, sharedKey, []byte("first-value"))
	mustPut(t, eng, second, sharedKey, []byte("second-value"))

	value, exists := mustGet(t, eng, first, sharedKey)
	if !exists || !bytes.Equal(value, []byte("first-value")) {
		t.Errorf("Expected first-value in first partition, got %s (found=%v)", value, exists)
	}

	value, exists = mustGet(t, eng, second, sharedKey)
	if !exists || !bytes.Equal(value, []byte("second-value")) {
		t.Errorf("Expected second-value in second partition, got %s (found=%v)", value, exists)
	}

	// a delete in one partition must not leak into the other
	if err := eng.Delete(first, sharedKey, engine.WriteOptions{}); err != nil {
		t.Fatalf("Unexpected error on Delete: %v", err)
	}

	_, exists = mustGet(t, eng, first, sharedKey)
	if exists {
		t.Errorf("Expected key to be deleted from first partition")
	}

	_, exists = mustGet(t, eng, second, sharedKey)
	if !exists {
		t.Errorf("Expected key to survive in second partition")
	}

	// iteration must stay inside the partition
	mustPut(t, eng, first, "first-only", []byte("x"))

	keys := collectKeys(t, eng, first)
	if len(keys) != 1 || keys[0] != "first-only" {
		t.Errorf("Expected first partition to contain only [first-only], got %v", keys)
	}

	keys = collectKeys(t, eng, second)
	if len(keys) != 1 || keys[0] != sharedKey {
		t.Errorf("Expected second partition to contain only [%s], got %v", sharedKey, keys)
	}
}

func testDurabilityModes(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "default")
	defer eng.Close()

	p := eng.Partitions()[0]

	// synced and unsynced writes must both round-trip
	if err := eng.Put(p, "durable-key", []byte("durable-value"), engine.WriteOptions{Sync: true}); err != nil {
		t.Errorf("Unexpected error on synced Put: %v", err)
	}
	if err := eng.Put(p, "fast-key", []byte("fast-value"), engine.WriteOptions{DisableWAL: true}); err != nil {
		t.Errorf("Unexpected error on unsynced Put: %v", err)
	}

	for _, key := range []string{"durable-key", "fast-key"} {
		if _, exists := mustGet(t, eng, p, key); !exists {
			t.Errorf("Expected key %s to exist after Put", key)
		}
	}

	batch := eng.NewBatch(p)
	batch.Put("durable-batch-key", []byte("durable-batch-value"))
	if err := batch.Commit(engine.WriteOptions{Sync: true}); err != nil {
		t.Errorf("Unexpected error on synced Commit: %v", err)
	}

	if _, exists := mustGet(t, eng, p, "durable-batch-key"); !exists {
		t.Errorf("Expected key durable-batch-key to exist after Commit")
	}
}

func testPersistence(t *testing.T, factory engine.Factory) {
	dir := t.TempDir()

	eng := open(t, factory, dir, "default")
	requireFeature(t, eng, engine.FeaturePersistent)

	p := eng.Partitions()[0]

	numEntries := 100
	for i := 0; i < numEntries; i++ {
		mustPut(t, eng, p, fmt.Sprintf("persist-key-%d", i), []byte(fmt.Sprintf("persist-value-%d", i)))
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("Unexpected error on Close: %v", err)
	}

	// reopen the same directory, the data must still be there
	eng = open(t, factory, dir, "default")
	defer eng.Close()

	p = eng.Partitions()[0]

	for i := 0; i < numEntries; i++ {
		key := fmt.Sprintf("persist-key-%d", i)
		expectedValue := []byte(fmt.Sprintf("persist-value-%d", i))

		value, exists := mustGet(t, eng, p, key)
		if !exists {
			t.Errorf("Key %s not found after reopen", key)
			continue
		}
		if !bytes.Equal(value, expectedValue) {
			t.Errorf("Value mismatch for key %s after reopen", key)
		}
	}
}

func testReadOnly(t *testing.T, factory engine.Factory) {
	dir := t.TempDir()

	eng := open(t, factory, dir, "default")
	requireFeature(t, eng, engine.FeaturePersistent)
	requireFeature(t, eng, engine.FeatureReadOnly)

	p := eng.Partitions()[0]
	mustPut(t, eng, p, "ro-key", []byte("ro-value"))

	if err := eng.Close(); err != nil {
		t.Fatalf("Unexpected error on Close: %v", err)
	}

	eng = openReadOnly(t, factory, dir, "default")
	defer eng.Close()

	p = eng.Partitions()[0]

	// reads must work
	value, exists := mustGet(t, eng, p, "ro-key")
	if !exists || !bytes.Equal(value, []byte("ro-value")) {
		t.Errorf("Expected ro-value in read-only engine, got %s (found=%v)", value, exists)
	}

	// every mutating operation must fail
	if err := eng.Put(p, "new-key", []byte("x"), engine.WriteOptions{}); err == nil {
		t.Errorf("Expected Put to fail on read-only engine")
	}
	if err := eng.Delete(p, "ro-key", engine.WriteOptions{}); err == nil {
		t.Errorf("Expected Delete to fail on read-only engine")
	}
	if err := eng.DeleteRange(p, "a", "z", engine.WriteOptions{}); err == nil {
		t.Errorf("Expected DeleteRange to fail on read-only engine")
	}

	batch := eng.NewBatch(p)
	batch.Put("batched-key", []byte("x"))
	if err := batch.Commit(engine.WriteOptions{}); err == nil {
		t.Errorf("Expected Commit to fail on read-only engine")
	}

	// the failed writes must not be visible
	if _, exists := mustGet(t, eng, p, "new-key"); exists {
		t.Errorf("Expected rejected write to be invisible")
	}
}

func testInfo(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "first", "second")
	defer eng.Close()

	p := eng.Partitions()[0]
	for i := 0; i < 100; i++ {
		mustPut(t, eng, p, fmt.Sprintf("info-key-%d", i), make([]byte, 128))
	}

	info, err := eng.GetInfo()
	if err != nil {
		t.Fatalf("Unexpected error on GetInfo: %v", err)
	}

	if info.EngineType == "" {
		t.Errorf("Expected a non-empty engine type")
	}
	if info.NumPartitions != 2 {
		t.Errorf("Expected 2 partitions, got %d", info.NumPartitions)
	}
	if info.SizeBytes < 0 {
		t.Errorf("Expected non-negative size, got %d", info.SizeBytes)
	}

	// reported features must match SupportsFeature
	for _, feature := range info.SupportedFeatures {
		if !eng.SupportsFeature(feature) {
			t.Errorf("Feature %s reported but not supported", feature)
		}
	}
}

func testConcurrentAccess(t *testing.T, factory engine.Factory) {
	eng := open(t, factory, t.TempDir(), "default")
	defer eng.Close()

	p := eng.Partitions()[0]

	type operation struct {
		op    string
		key   string
		value []byte
	}

	numOperations := 10_000
	operations := make([]operation, numOperations)

	for i := 0; i < numOperations; i++ {
		var op string
		switch i % 10 {
		case 0, 1, 2, 3, 4, 5, 6:
			op = "put"
		case 7, 8:
			op = "get"
		case 9:
			op = "delete"
		}

		var key string
		if i%5 == 0 {
			key = fmt.Sprintf("hot-key-%d", i%50)
		} else {
			key = fmt.Sprintf("key-%d", i)
		}

		var value []byte
		if op == "put" {
			value = []byte(fmt.Sprintf("value-%d", i))
		}

		operations[i] = operation{op, key, value}
	}

	allKeys := make(map[string]bool)
	for _, op := range operations {
		allKeys[op.key] = true
	}

	numWorkers := 8
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	var errorCount int32

	opsPerWorker := numOperations / numWorkers

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()

			start := workerId * opsPerWorker
			end := start + opsPerWorker

			for i := start; i < end; i++ {
				op := operations[i]

				var err error
				switch op.op {
				case "put":
					err = eng.Put(p, op.key, op.value, engine.WriteOptions{})
				case "get":
					_, _, err = eng.Get(p, op.key)
				case "delete":
					err = eng.Delete(p, op.key, engine.WriteOptions{})
				}
				if err != nil {
					atomic.AddInt32(&errorCount, 1)
				}
			}
		}(w)
	}

	wg.Wait()

	if atomic.LoadInt32(&errorCount) > 0 {
		t.Fatalf("Test had %d errors during parallel operations", errorCount)
	}

	// two verification passes, existence and values must not change while
	// the store is quiescent
	firstPass := make(map[string][]byte)
	for key := range allKeys {
		value, exists := mustGet(t, eng, p, key)
		if exists {
			firstPass[key] = value
		}
	}

	for key := range allKeys {
		value, exists := mustGet(t, eng, p, key)

		expectedValue, expectedExists := firstPass[key]
		if exists != expectedExists {
			t.Errorf("Consistency error: Key %s existence changed during verification", key)
			continue
		}
		if exists && !bytes.Equal(value, expectedValue) {
			t.Errorf("Value mismatch for key %s between verification passes", key)
		}
	}
}
