package ephemeral

import (
	"sync"

	"github.com/cellardb/cellar/lib/engine"
	"github.com/cellardb/cellar/lib/engine/util"
	"github.com/google/btree"
)

// default branching factor for the partition trees
const btreeDegree = 32

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// entry is a single key-value pair stored in a partition tree. Ordering
// follows the raw key bytes so iteration matches the persistent engine.
type entry struct {
	key   string
	value []byte
}

func (e *entry) Less(than btree.Item) bool {
	return e.key < than.(*entry).key
}

// partition holds one named key space. The btree is not safe for
// concurrent use, every access goes through the partition mutex.
type partition struct {
	name string
	mu   sync.RWMutex
	tree *btree.BTree
}

func (p *partition) Name() string {
	return p.name
}

func copyValue(value []byte) []byte {
	if value == nil {
		return nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out
}

// --------------------------------------------------------------------------
// Engine Implementation
// --------------------------------------------------------------------------

type ephemeralEngine struct {
	partitions []engine.Partition
}

// supported features of this engine
const supportedFeatures = engine.FeatureRangeDelete

// New creates an in-memory engine. The path argument exists to satisfy
// engine.Factory and is ignored, nothing is ever written to disk. Write
// options are accepted and ignored as well: an applied write is as durable
// as this engine gets.
func New(_ string, opts engine.OpenOptions) (engine.KVEngine, error) {
	if opts.ReadOnly {
		return nil, engine.NewStatus(engine.StatusNotSupported, "ephemeral engine cannot open read-only")
	}

	seen := make(map[string]struct{}, len(opts.Partitions))
	partitions := make([]engine.Partition, len(opts.Partitions))
	for i, desc := range opts.Partitions {
		if err := desc.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[desc.Name]; ok {
			return nil, engine.NewStatusf(engine.StatusInvalidArgument, "duplicate partition %q", desc.Name)
		}
		seen[desc.Name] = struct{}{}

		partitions[i] = &partition{
			name: desc.Name,
			tree: btree.New(btreeDegree),
		}
	}

	return &ephemeralEngine{partitions: partitions}, nil
}

// --------------------------------------------------------------------------
// KVEngine Interface Implementation - Partitions
// --------------------------------------------------------------------------

func (e *ephemeralEngine) Partitions() []engine.Partition {
	return e.partitions
}

// --------------------------------------------------------------------------
// KVEngine Interface Implementation - Write Operations
// --------------------------------------------------------------------------

func (e *ephemeralEngine) Put(p engine.Partition, key string, value []byte, _ engine.WriteOptions) error {
	part := p.(*partition)

	part.mu.Lock()
	defer part.mu.Unlock()

	part.tree.ReplaceOrInsert(&entry{key: key, value: copyValue(value)})
	return nil
}

func (e *ephemeralEngine) Delete(p engine.Partition, key string, _ engine.WriteOptions) error {
	part := p.(*partition)

	part.mu.Lock()
	defer part.mu.Unlock()

	part.tree.Delete(&entry{key: key})
	return nil
}

func (e *ephemeralEngine) DeleteRange(p engine.Partition, low, high string, _ engine.WriteOptions) error {
	if low >= high {
		return nil
	}
	part := p.(*partition)

	part.mu.Lock()
	defer part.mu.Unlock()

	// collect first, deleting while ascending would invalidate the walk
	var doomed []string
	part.tree.AscendGreaterOrEqual(&entry{key: low}, func(item btree.Item) bool {
		e := item.(*entry)
		if e.key >= high {
			return false
		}
		doomed = append(doomed, e.key)
		return true
	})
	for _, key := range doomed {
		part.tree.Delete(&entry{key: key})
	}
	return nil
}

func (e *ephemeralEngine) NewBatch(p engine.Partition) engine.Batch {
	return &memBatch{partition: p.(*partition)}
}

// --------------------------------------------------------------------------
// KVEngine Interface Implementation - Read Operations
// --------------------------------------------------------------------------

func (e *ephemeralEngine) Get(p engine.Partition, key string) ([]byte, bool, error) {
	part := p.(*partition)

	part.mu.RLock()
	defer part.mu.RUnlock()

	item := part.tree.Get(&entry{key: key})
	if item == nil {
		return nil, false, nil
	}
	return copyValue(item.(*entry).value), true, nil
}

// NewIterator snapshots the partition content at creation time. The
// iterator stays valid while concurrent writers modify the partition, it
// just keeps showing the snapshot.
func (e *ephemeralEngine) NewIterator(p engine.Partition, _ engine.ReadOptions) (engine.Iterator, error) {
	part := p.(*partition)

	part.mu.RLock()
	defer part.mu.RUnlock()

	entries := make([]*entry, 0, part.tree.Len())
	part.tree.Ascend(func(item btree.Item) bool {
		entries = append(entries, item.(*entry))
		return true
	})

	return &memIterator{entries: entries, idx: 0}, nil
}

// --------------------------------------------------------------------------
// KVEngine Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// SupportsFeature checks if the engine supports the specified feature
func (e *ephemeralEngine) SupportsFeature(feature engine.Feature) bool {
	return supportedFeatures&feature == feature
}

// GetInfo returns statistics about the engine instance
func (e *ephemeralEngine) GetInfo() (engine.EngineInfo, error) {
	// sample value sizes per partition instead of scanning everything
	histogram := util.NewSizeHistogram()
	samplesPerPartition := 100

	totalEntries := 0
	partitionSizes := make([]float64, len(e.partitions))

	for i, p := range e.partitions {
		part := p.(*partition)

		part.mu.RLock()
		count := 0
		part.tree.Ascend(func(item btree.Item) bool {
			histogram.AddSample(len(item.(*entry).value))
			count++
			return count < samplesPerPartition
		})
		partitionSizes[i] = float64(part.tree.Len())
		totalEntries += part.tree.Len()
		part.mu.RUnlock()
	}

	// weighted estimate (60% median, 40% average) scaled to entry count
	entryOverhead := 48 // string header, slice header, tree node share
	medianSize := histogram.MedianEstimate() + entryOverhead
	avgSize := histogram.AverageSize() + entryOverhead
	sizeBytes := int64((medianSize*60+avgSize*40)/100) * int64(totalEntries)

	// Metadata for this specific engine implementation
	meta := &struct {
		NumEntries            int                    `json:"num_entries"`
		PartitionDistribution util.DistributionStats `json:"partition_distribution"`
		Info                  string                 `json:"info"`
	}{
		NumEntries:            totalEntries,
		PartitionDistribution: util.NewDistributionStats(partitionSizes),
		Info:                  "All values (including SizeBytes) are estimates based on sampling.",
	}

	return engine.EngineInfo{
		EngineType:    engine.ImplEphemeral,
		SizeBytes:     sizeBytes,
		NumPartitions: len(e.partitions),
		SupportedFeatures: []engine.Feature{
			engine.FeatureRangeDelete,
		},
		Metadata: meta,
	}, nil
}

func (e *ephemeralEngine) Close() error {
	for _, p := range e.partitions {
		part := p.(*partition)
		part.mu.Lock()
		part.tree.Clear(false)
		part.mu.Unlock()
	}
	return nil
}

// --------------------------------------------------------------------------
// Batch Implementation
// --------------------------------------------------------------------------

type batchOp struct {
	del   bool
	key   string
	value []byte
}

type memBatch struct {
	partition *partition
	ops       []batchOp
}

func (b *memBatch) Put(key string, value []byte) {
	b.ops = append(b.ops, batchOp{key: key, value: copyValue(value)})
}

func (b *memBatch) Delete(key string) {
	b.ops = append(b.ops, batchOp{del: true, key: key})
}

func (b *memBatch) Len() int {
	return len(b.ops)
}

// Commit applies all batched operations under one lock acquisition so
// readers never observe a partially applied batch.
func (b *memBatch) Commit(_ engine.WriteOptions) error {
	if len(b.ops) == 0 {
		return nil
	}

	b.partition.mu.Lock()
	defer b.partition.mu.Unlock()

	for _, op := range b.ops {
		if op.del {
			b.partition.tree.Delete(&entry{key: op.key})
			continue
		}
		b.partition.tree.ReplaceOrInsert(&entry{key: op.key, value: op.value})
	}
	b.ops = nil
	return nil
}

// --------------------------------------------------------------------------
// Iterator Implementation
// --------------------------------------------------------------------------

type memIterator struct {
	entries []*entry
	idx     int
}

func (i *memIterator) SeekToFirst() {
	i.idx = 0
}

func (i *memIterator) Valid() bool {
	return i.idx < len(i.entries)
}

func (i *memIterator) Next() {
	i.idx++
}

func (i *memIterator) Key() string {
	return i.entries[i.idx].key
}

func (i *memIterator) Value() ([]byte, error) {
	return copyValue(i.entries[i.idx].value), nil
}

func (i *memIterator) Close() {}
