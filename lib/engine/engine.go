package engine

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplBadger    Implementation = "badger"
	ImplEphemeral Implementation = "ephemeral"
)

// Feature represents engine features as bit flags
type Feature uint64

const (
	FeaturePersistent  Feature = 1 << iota // Data survives Close/reopen
	FeatureSyncWrites                      // Support for WriteOptions.Sync
	FeatureDisableWAL                      // Support for WriteOptions.DisableWAL
	FeatureRangeDelete                     // Support for DeleteRange operations
	FeatureReadOnly                        // Support for read-only opens
)

func (f Feature) String() string {
	switch f {
	case FeaturePersistent:
		return "Persistent"
	case FeatureSyncWrites:
		return "SyncWrites"
	case FeatureDisableWAL:
		return "DisableWAL"
	case FeatureRangeDelete:
		return "RangeDelete"
	case FeatureReadOnly:
		return "ReadOnly"
	default:
		return "Unknown"
	}
}

// EngineInfo describes an open engine instance.
type EngineInfo struct {
	EngineType        Implementation `json:"engine_type"`
	SizeBytes         int64          `json:"size_bytes"`
	NumPartitions     int            `json:"num_partitions"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Partitions
// --------------------------------------------------------------------------

// PartitionDescriptor names one partition to be opened with the engine.
type PartitionDescriptor struct {
	Name string
}

// Validate reports whether the descriptor can be opened. Partition names
// must be non-empty and must not contain a NUL byte (adapters use NUL as an
// internal separator).
func (d PartitionDescriptor) Validate() error {
	if d.Name == "" {
		return NewStatus(StatusInvalidArgument, "partition name must not be empty")
	}
	for i := 0; i < len(d.Name); i++ {
		if d.Name[i] == 0 {
			return NewStatus(StatusInvalidArgument, "partition name must not contain NUL")
		}
	}
	return nil
}

// Partition is an engine-internal handle identifying one open partition.
// Handles are obtained from KVEngine.Partitions and stay valid until the
// engine is closed.
type Partition interface {
	// Name returns the partition name from the opening descriptor.
	Name() string
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// OpenOptions configures an engine open. The zero value is usable; see
// DefaultOpenOptions for the tuning the managed store applies.
type OpenOptions struct {
	// Partitions lists every partition to open, in a fixed order. The
	// returned handle slice is parallel to this list.
	Partitions []PartitionDescriptor

	// ReadOnly opens the store without write capability. Write operations
	// against a read-only engine fail with StatusNotSupported.
	ReadOnly bool

	// DisableCompression turns off block/value compression.
	DisableCompression bool

	// MaxOpenFiles caps the engine's open file handles (0 = engine default).
	MaxOpenFiles int

	// MaxLogFileSize caps the size of the engine's diagnostic log files in
	// bytes, for engines that write them (0 = engine default).
	MaxLogFileSize int64

	// KeepLogFiles caps the number of rotated diagnostic log files kept
	// around (0 = engine default).
	KeepLogFiles int

	// LogSink receives the engine's internal log lines. May be nil, in
	// which case the engine logs nowhere.
	LogSink LogSink
}

// DefaultOpenOptions returns the tuning applied by the managed store:
// compression off, small capped internal logs, bounded file handles.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		DisableCompression: true,
		MaxOpenFiles:       128,
		MaxLogFileSize:     1024 * 1024,
		KeepLogFiles:       10,
	}
}

// WriteOptions selects the durability mode for a single commit.
type WriteOptions struct {
	// Sync forces the commit to be persisted before the call returns.
	Sync bool
	// DisableWAL skips write-ahead logging for this commit; the write may
	// be lost on crash but never blocks on a log flush.
	DisableWAL bool
}

// ReadOptions tunes a single iteration.
type ReadOptions struct {
	// VerifyChecksums validates block checksums while reading.
	VerifyChecksums bool
	// FillCache populates the engine's block cache with the data read.
	FillCache bool
}

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// Factory opens an engine instance rooted at path. It is injected into the
// managed store so the store never depends on a concrete adapter.
type Factory func(path string, opts OpenOptions) (KVEngine, error)

// KVEngine defines the boundary to an embedded, ordered key-value engine.
// Keys within a partition are totally ordered by byte-lexicographic
// comparison. Implementations must be safe for concurrent use against
// already-open partition handles; Close must not be called concurrently
// with other operations.
type KVEngine interface {

	// --------------------------------------------------------------------------
	// Partition Access
	// --------------------------------------------------------------------------

	// Partitions returns the open partition handles, parallel to the
	// descriptors the engine was opened with.
	Partitions() []Partition

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Put inserts or updates a single key under the given durability mode.
	Put(p Partition, key string, value []byte, wo WriteOptions) error

	// Delete removes a single key. Deleting an absent key is not an error.
	Delete(p Partition, key string, wo WriteOptions) error

	// DeleteRange removes every key in the half-open interval [low, high).
	// An empty interval (low >= high) is a no-op.
	DeleteRange(p Partition, low, high string, wo WriteOptions) error

	// NewBatch starts an atomic write batch scoped to one partition.
	// Either every operation in the batch is applied or none is.
	NewBatch(p Partition) Batch

	// --------------------------------------------------------------------------
	// Read Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key. The boolean return value
	// indicates whether the key was found; absence is not an error.
	Get(p Partition, key string) (value []byte, found bool, err error)

	// NewIterator returns an iterator positioned before the first key of
	// the partition. The caller must Close it.
	NewIterator(p Partition, ro ReadOptions) (Iterator, error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|).
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the engine instance.
	GetInfo() (info EngineInfo, err error)

	// Close releases every partition handle and the store handle. The
	// engine must not be used afterwards.
	Close() (err error)
}

// Batch collects writes for a single atomic commit.
type Batch interface {
	// Put adds an upsert to the batch.
	Put(key string, value []byte)
	// Delete adds a key removal to the batch.
	Delete(key string)
	// Len returns the number of operations collected so far.
	Len() int
	// Commit applies the batch atomically under the given durability mode.
	// After Commit the batch must not be reused.
	Commit(wo WriteOptions) error
}

// Iterator walks a partition's key space in ascending key order.
type Iterator interface {
	// SeekToFirst positions the iterator on the smallest key.
	SeekToFirst()
	// Valid reports whether the iterator is positioned on a key.
	Valid() bool
	// Next advances to the next key in ascending order.
	Next()
	// Key returns the key at the current position.
	Key() string
	// Value returns the value at the current position.
	Value() (value []byte, err error)
	// Close releases the iterator.
	Close()
}

// --------------------------------------------------------------------------
// Log Interception
// --------------------------------------------------------------------------

// LogSink receives the embedded engine's internal log lines, already split
// by severity. Sink methods are invoked from engine-internal goroutines and
// must never call back into the engine that is logging; engine logging is
// not reentrant.
type LogSink interface {
	Errorf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}
