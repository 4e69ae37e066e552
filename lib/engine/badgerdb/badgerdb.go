package badgerdb

import (
	"bytes"
	"os"
	"strings"
	"sync"

	"github.com/cellardb/cellar/lib/engine"
	"github.com/cellardb/cellar/lib/engine/util"
	badger "github.com/dgraph-io/badger/v4"
	badgeroptions "github.com/dgraph-io/badger/v4/options"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// partition is the handle for one named key space. All keys of a partition
// share the prefix "<name>\x00" inside the shared badger instance; the NUL
// separator keeps partition names prefix-free against each other.
type partition struct {
	name   string
	prefix []byte
}

func (p *partition) Name() string {
	return p.name
}

func newPartition(name string) *partition {
	prefix := make([]byte, 0, len(name)+1)
	prefix = append(prefix, name...)
	prefix = append(prefix, 0)
	return &partition{name: name, prefix: prefix}
}

// encodeKey maps a user key into the partition's key space.
func (p *partition) encodeKey(key string) []byte {
	buf := make([]byte, 0, len(p.prefix)+len(key))
	buf = append(buf, p.prefix...)
	buf = append(buf, key...)
	return buf
}

// decodeKey strips the partition prefix from a stored key.
func (p *partition) decodeKey(stored []byte) string {
	return string(stored[len(p.prefix):])
}

// --------------------------------------------------------------------------
// Engine Implementation
// --------------------------------------------------------------------------

type badgerEngine struct {
	db         *badger.DB
	partitions []engine.Partition
	readOnly   bool
	closeOnce  sync.Once
	closeErr   error
}

// supported features of this engine
const supportedFeatures = engine.FeaturePersistent |
	engine.FeatureSyncWrites |
	engine.FeatureDisableWAL |
	engine.FeatureRangeDelete |
	engine.FeatureReadOnly

// max bytes per value log (vlog) file
const valueLogFileSize = 128 * 1024 * 1024 // 128MB

// New opens a badger backed engine rooted at path. The function signature
// matches engine.Factory so it can be injected into a managed store.
//
// Option mapping notes: DisableCompression maps to badger's compression
// setting. MaxLogFileSize, KeepLogFiles and MaxOpenFiles tune engines that
// write rotating diagnostic log files and manage file handle pools; badger
// does neither (logging goes through LogSink), so all three are ignored
// here.
func New(path string, opts engine.OpenOptions) (engine.KVEngine, error) {
	// validate partition descriptors before touching the filesystem
	seen := make(map[string]struct{}, len(opts.Partitions))
	for _, desc := range opts.Partitions {
		if err := desc.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[desc.Name]; ok {
			return nil, engine.NewStatusf(engine.StatusInvalidArgument, "duplicate partition %q", desc.Name)
		}
		seen[desc.Name] = struct{}{}
	}

	bopts := badger.DefaultOptions(path)
	bopts = bopts.WithValueLogFileSize(valueLogFileSize)
	bopts.Logger = nil
	if opts.LogSink != nil {
		bopts = bopts.WithLogger(opts.LogSink)
	}
	if opts.ReadOnly {
		bopts = bopts.WithReadOnly(true)
	}
	if opts.DisableCompression {
		bopts = bopts.WithCompression(badgeroptions.None)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, classify(err)
	}

	partitions := make([]engine.Partition, len(opts.Partitions))
	for i, desc := range opts.Partitions {
		partitions[i] = newPartition(desc.Name)
	}

	return &badgerEngine{
		db:         db,
		partitions: partitions,
		readOnly:   opts.ReadOnly,
	}, nil
}

// --------------------------------------------------------------------------
// KVEngine Interface Implementation - Partitions
// --------------------------------------------------------------------------

func (e *badgerEngine) Partitions() []engine.Partition {
	return e.partitions
}

// --------------------------------------------------------------------------
// KVEngine Interface Implementation - Write Operations
// --------------------------------------------------------------------------

func (e *badgerEngine) Put(p engine.Partition, key string, value []byte, wo engine.WriteOptions) error {
	if err := e.writable(); err != nil {
		return err
	}
	part := p.(*partition)

	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(part.encodeKey(key), value)
	})
	if err != nil {
		return classify(err)
	}
	return e.maybeSync(wo)
}

func (e *badgerEngine) Delete(p engine.Partition, key string, wo engine.WriteOptions) error {
	if err := e.writable(); err != nil {
		return err
	}
	part := p.(*partition)

	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(part.encodeKey(key))
	})
	if err != nil {
		return classify(err)
	}
	return e.maybeSync(wo)
}

func (e *badgerEngine) DeleteRange(p engine.Partition, low, high string, wo engine.WriteOptions) error {
	if err := e.writable(); err != nil {
		return err
	}
	if low >= high {
		return nil
	}
	part := p.(*partition)

	lowKey := part.encodeKey(low)
	highKey := part.encodeKey(high)

	// iterate and delete inside one transaction so the range removal is
	// atomic with respect to concurrent writers
	err := e.db.Update(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = part.prefix
		iopts.PrefetchValues = false

		it := txn.NewIterator(iopts)
		defer it.Close()

		for it.Seek(lowKey); it.Valid(); it.Next() {
			storedKey := it.Item().KeyCopy(nil)
			if bytes.Compare(storedKey, highKey) >= 0 {
				break
			}
			if err := txn.Delete(storedKey); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}
	return e.maybeSync(wo)
}

func (e *badgerEngine) NewBatch(p engine.Partition) engine.Batch {
	return &writeBatch{engine: e, partition: p.(*partition)}
}

// --------------------------------------------------------------------------
// KVEngine Interface Implementation - Read Operations
// --------------------------------------------------------------------------

func (e *badgerEngine) Get(p engine.Partition, key string) ([]byte, bool, error) {
	part := p.(*partition)

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(part.encodeKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify(err)
	}
	return value, true, nil
}

func (e *badgerEngine) NewIterator(p engine.Partition, ro engine.ReadOptions) (engine.Iterator, error) {
	part := p.(*partition)

	iopts := badger.DefaultIteratorOptions
	iopts.Prefix = part.prefix
	// FillCache=false iteration skips value prefetching, badger verifies
	// block checksums on its own schedule so VerifyChecksums has no knob
	iopts.PrefetchValues = ro.FillCache

	txn := e.db.NewTransaction(false)
	it := txn.NewIterator(iopts)

	return &badgerIterator{txn: txn, it: it, partition: part}, nil
}

// --------------------------------------------------------------------------
// KVEngine Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// SupportsFeature checks if the engine supports the specified feature
func (e *badgerEngine) SupportsFeature(feature engine.Feature) bool {
	return supportedFeatures&feature == feature
}

// GetInfo returns statistics about the engine instance
func (e *badgerEngine) GetInfo() (engine.EngineInfo, error) {
	lsmSize, vlogSize := e.db.Size()

	// sample value sizes per partition instead of scanning everything
	histogram := util.NewSizeHistogram()
	samplesPerPartition := 100
	partitionSizes := make([]float64, len(e.partitions))

	for i, p := range e.partitions {
		part := p.(*partition)

		err := e.db.View(func(txn *badger.Txn) error {
			iopts := badger.DefaultIteratorOptions
			iopts.Prefix = part.prefix
			iopts.PrefetchValues = true

			it := txn.NewIterator(iopts)
			defer it.Close()

			count := 0
			for it.Rewind(); it.Valid() && count < samplesPerPartition; it.Next() {
				value, err := it.Item().ValueCopy(nil)
				if err != nil {
					return err
				}
				histogram.AddSample(len(value))
				count++
			}
			partitionSizes[i] = float64(count)
			return nil
		})
		if err != nil {
			return engine.EngineInfo{}, classify(err)
		}
	}

	// Metadata for this specific engine implementation
	meta := &struct {
		LSMSizeBytes          int64                  `json:"lsm_size_bytes"`
		VLogSizeBytes         int64                  `json:"vlog_size_bytes"`
		ReadOnly              bool                   `json:"read_only"`
		MedianValueSize       int                    `json:"median_value_size"`
		AvgValueSize          int                    `json:"avg_value_size"`
		PartitionDistribution util.DistributionStats `json:"partition_distribution"`
		Info                  string                 `json:"info"`
	}{
		LSMSizeBytes:          lsmSize,
		VLogSizeBytes:         vlogSize,
		ReadOnly:              e.readOnly,
		MedianValueSize:       histogram.MedianEstimate(),
		AvgValueSize:          histogram.AverageSize(),
		PartitionDistribution: util.NewDistributionStats(partitionSizes),
		Info:                  "Value sizes and partition distribution are sampled estimates.",
	}

	return engine.EngineInfo{
		EngineType:    engine.ImplBadger,
		SizeBytes:     lsmSize + vlogSize,
		NumPartitions: len(e.partitions),
		SupportedFeatures: []engine.Feature{
			engine.FeaturePersistent,
			engine.FeatureSyncWrites,
			engine.FeatureDisableWAL,
			engine.FeatureRangeDelete,
			engine.FeatureReadOnly,
		},
		Metadata: meta,
	}, nil
}

func (e *badgerEngine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = classify(e.db.Close())
	})
	return e.closeErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// writable guards every mutating call in read-only mode.
func (e *badgerEngine) writable() error {
	if e.readOnly {
		return engine.NewStatus(engine.StatusNotSupported, "engine opened read-only")
	}
	return nil
}

// maybeSync forces the value log to stable storage for durable writes.
// DisableWAL writes need no extra work: skipping the sync already leaves
// the commit buffered.
func (e *badgerEngine) maybeSync(wo engine.WriteOptions) error {
	if !wo.Sync {
		return nil
	}
	if err := e.db.Sync(); err != nil {
		return classify(err)
	}
	return nil
}

// classify wraps a badger or filesystem error into an engine status so
// callers can react to corruption without matching badger message strings.
func classify(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case engine.ContainsCorruptionMarker(msg):
		return engine.NewStatus(engine.StatusCorruption, msg)
	case os.IsNotExist(err), os.IsPermission(err):
		return engine.NewStatus(engine.StatusIOError, msg)
	case strings.Contains(lower, "no such file"),
		strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "i/o error"):
		return engine.NewStatus(engine.StatusIOError, msg)
	default:
		return engine.NewStatus(engine.StatusInternal, msg)
	}
}

// --------------------------------------------------------------------------
// Batch Implementation
// --------------------------------------------------------------------------

type batchOp struct {
	del   bool
	key   string
	value []byte
}

type writeBatch struct {
	engine    *badgerEngine
	partition *partition
	ops       []batchOp
}

func (b *writeBatch) Put(key string, value []byte) {
	b.ops = append(b.ops, batchOp{key: key, value: value})
}

func (b *writeBatch) Delete(key string) {
	b.ops = append(b.ops, batchOp{del: true, key: key})
}

func (b *writeBatch) Len() int {
	return len(b.ops)
}

// Commit applies all batched operations in a single transaction. Badger
// guarantees the transaction is applied atomically, so a failing operation
// rolls back the whole batch.
func (b *writeBatch) Commit(wo engine.WriteOptions) error {
	if err := b.engine.writable(); err != nil {
		return err
	}
	if len(b.ops) == 0 {
		return nil
	}

	err := b.engine.db.Update(func(txn *badger.Txn) error {
		for _, op := range b.ops {
			storedKey := b.partition.encodeKey(op.key)
			if op.del {
				if err := txn.Delete(storedKey); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set(storedKey, op.value); err != nil {
				return err
			}
		}
		return nil
	})
	b.ops = nil
	if err != nil {
		return classify(err)
	}
	return b.engine.maybeSync(wo)
}

// --------------------------------------------------------------------------
// Iterator Implementation
// --------------------------------------------------------------------------

type badgerIterator struct {
	txn       *badger.Txn
	it        *badger.Iterator
	partition *partition
}

func (i *badgerIterator) SeekToFirst() {
	i.it.Rewind()
}

func (i *badgerIterator) Valid() bool {
	return i.it.Valid()
}

func (i *badgerIterator) Next() {
	i.it.Next()
}

func (i *badgerIterator) Key() string {
	return i.partition.decodeKey(i.it.Item().Key())
}

func (i *badgerIterator) Value() ([]byte, error) {
	value, err := i.it.Item().ValueCopy(nil)
	if err != nil {
		return nil, classify(err)
	}
	return value, nil
}

func (i *badgerIterator) Close() {
	i.it.Close()
	i.txn.Discard()
}
