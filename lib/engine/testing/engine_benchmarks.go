package testing

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/cellardb/cellar/lib/engine"
)

// RunEngineBenchmarks runs all benchmarks for a KVEngine implementation
func RunEngineBenchmarks(b *testing.B, name string, factory engine.Factory) {

	b.Run("Put", func(b *testing.B) {
		benchmarkPut(b, factory)
	})

	b.Run("PutExisting", func(b *testing.B) {
		benchmarkPutExisting(b, factory)
	})

	b.Run("PutSynced", func(b *testing.B) {
		benchmarkPutSynced(b, factory)
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory)
	})

	b.Run("Get(miss)", func(b *testing.B) {
		benchmarkGetMiss(b, factory)
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, factory)
	})

	b.Run("BatchCommit", func(b *testing.B) {
		benchmarkBatchCommit(b, factory)
	})

	b.Run("Iterate", func(b *testing.B) {
		benchmarkIterate(b, factory)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory)
	})
}

// openBench creates an engine for one benchmark and registers the cleanup.
func openBench(b *testing.B, factory engine.Factory) (engine.KVEngine, engine.Partition) {
	eng := open(b, factory, b.TempDir(), "default")
	b.Cleanup(func() {
		eng.Close()
	})
	return eng, eng.Partitions()[0]
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Put operation
func benchmarkPut(b *testing.B, factory engine.Factory) {
	eng, p := openBench(b, factory)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := fmt.Sprintf("test-key-%d", counter)
			value := []byte(fmt.Sprintf("test-value-%d", counter))
			eng.Put(p, key, value, engine.WriteOptions{})
			counter++
		}
	})
}

// Benchmark for Put operation with existing keys
func benchmarkPutExisting(b *testing.B, factory engine.Factory) {
	eng, p := openBench(b, factory)

	// Prepare data
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("test-key-%d", i)
		value := []byte(fmt.Sprintf("test-value-%d", i))
		eng.Put(p, key, value, engine.WriteOptions{})
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := fmt.Sprintf("test-key-%d", counter%numKeys)
			value := []byte(fmt.Sprintf("test-value-%d", counter))
			eng.Put(p, key, value, engine.WriteOptions{})
			counter++
		}
	})
}

// Benchmark for Put operation with forced syncs
func benchmarkPutSynced(b *testing.B, factory engine.Factory) {
	eng, p := openBench(b, factory)

	if !eng.SupportsFeature(engine.FeatureSyncWrites) {
		b.Skip()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("test-key-%d", i)
		value := []byte(fmt.Sprintf("test-value-%d", i))
		eng.Put(p, key, value, engine.WriteOptions{Sync: true})
	}
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, factory engine.Factory) {
	eng, p := openBench(b, factory)

	// Prepare data
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("test-key-%d", i)
		value := []byte(fmt.Sprintf("test-value-%d", i))
		eng.Put(p, key, value, engine.WriteOptions{})
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := fmt.Sprintf("test-key-%d", counter%numKeys)
			eng.Get(p, key)
			counter++
		}
	})
}

// Parallel benchmarking for Get operation with key misses
func benchmarkGetMiss(b *testing.B, factory engine.Factory) {
	eng, p := openBench(b, factory)

	const key = "test-key"

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			eng.Get(p, key)
		}
	})
}

// Parallel benchmarking for Delete operation
func benchmarkDelete(b *testing.B, factory engine.Factory) {
	eng, p := openBench(b, factory)

	numKeys := 100000
	if b.N < numKeys {
		numKeys = b.N
	}

	// Prepare data
	keys := make([]string, numKeys)
	for i := 0; i < numKeys; i++ {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		value := []byte(fmt.Sprintf("test-value-%d", i))
		eng.Put(p, keys[i], value, engine.WriteOptions{})
	}

	// Counter for atomic access
	var counter int64

	// Reset timer since we were doing setup
	b.ResetTimer()

	// Run parallel delete operations
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx := int(atomic.AddInt64(&counter, 1)-1) % numKeys
			eng.Delete(p, keys[idx], engine.WriteOptions{})
		}
	})
}

// Benchmark for batched writes, 100 operations per commit
func benchmarkBatchCommit(b *testing.B, factory engine.Factory) {
	eng, p := openBench(b, factory)

	const batchSize = 100

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch := eng.NewBatch(p)
		for j := 0; j < batchSize; j++ {
			key := fmt.Sprintf("batch-key-%d-%d", i, j)
			value := []byte(fmt.Sprintf("batch-value-%d-%d", i, j))
			batch.Put(key, value)
		}
		batch.Commit(engine.WriteOptions{})
	}
}

// Benchmark for a full iteration over a populated partition
func benchmarkIterate(b *testing.B, factory engine.Factory) {
	eng, p := openBench(b, factory)

	// Prepare data
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("test-key-%d", i)
		value := []byte(fmt.Sprintf("test-value-%d", i))
		eng.Put(p, key, value, engine.WriteOptions{})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it, err := eng.NewIterator(p, engine.ReadOptions{})
		if err != nil {
			b.Fatalf("Unexpected error creating iterator: %v", err)
		}
		count := 0
		for it.SeekToFirst(); it.Valid(); it.Next() {
			count++
		}
		it.Close()
	}
}

// Benchmark for mixed usage patterns
func benchmarkMixedUsage(b *testing.B, factory engine.Factory) {
	eng, p := openBench(b, factory)

	// Number of pre-populated keys
	numKeys := 100000
	if b.N < numKeys {
		numKeys = b.N
	}

	// Prepare initial data
	keys := make([]string, numKeys)
	for i := 0; i < numKeys; i++ {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		value := []byte(fmt.Sprintf("test-value-%d", i))
		eng.Put(p, keys[i], value, engine.WriteOptions{})
	}

	// Counter for atomic access
	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		// Local counter for each goroutine
		localCounter := 0

		for pb.Next() {
			// Get a somewhat random index
			idx := int(atomic.AddInt64(&counter, 1)-1) % numKeys

			// Select operation (0-2: get, put, delete)
			op := localCounter % 3

			// For every 10th operation, use a completely new key
			var key string
			if localCounter%10 == 0 {
				key = fmt.Sprintf("new-key-%d", localCounter)
			} else {
				key = keys[idx]
			}

			// Perform the selected operation
			switch op {
			case 0: // Get
				eng.Get(p, key)
			case 1: // Put
				value := []byte(fmt.Sprintf("mixed-value-%d", localCounter))
				eng.Put(p, key, value, engine.WriteOptions{})
			case 2: // Delete
				eng.Delete(p, key, engine.WriteOptions{})
			}

			localCounter++
		}
	})
}
