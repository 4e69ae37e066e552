package events

import (
	"sync/atomic"
	"time"

	"github.com/cellardb/cellar/lib/store"
)

// --------------------------------------------------------------------------
// Disabled Signal
// --------------------------------------------------------------------------

// disabled is the package wide kill switch for event recording. It is
// raised when the backing store degrades to read-only operation, where
// event writes would be dropped anyway.
var disabled atomic.Bool

// Disable stops all recorders from writing. Reads keep working.
func Disable() {
	disabled.Store(true)
}

// Enable resumes event recording.
func Enable() {
	disabled.Store(false)
}

// IsDisabled reports whether event recording is currently disabled.
func IsDisabled() bool {
	return disabled.Load()
}

// --------------------------------------------------------------------------
// Recorder Implementation
// --------------------------------------------------------------------------

type recorderImpl struct {
	store  store.IStore
	domain string
	now    func() int64
}

// NewRecorder creates an event recorder writing into the given domain of
// the store. The recorder keeps no state of its own, creating several
// recorders over the same store and domain is safe.
func NewRecorder(s store.IStore, domain string) IRecorder {
	return &recorderImpl{
		store:  s,
		domain: domain,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

func (r *recorderImpl) Record(payload []byte) (string, error) {
	keys, err := r.RecordBatch([][]byte{payload})
	if err != nil || len(keys) == 0 {
		return "", err
	}
	return keys[0], nil
}

func (r *recorderImpl) RecordBatch(payloads [][]byte) ([]string, error) {
	if IsDisabled() || len(payloads) == 0 {
		return nil, nil
	}

	ts := r.now()
	pairs := make([]store.Pair, len(payloads))
	keys := make([]string, len(payloads))
	for i, payload := range payloads {
		key := eventKey(ts)
		pairs[i] = store.Pair{Key: key, Value: payload}
		keys[i] = key
	}

	if err := r.store.PutBatch(r.domain, pairs); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *recorderImpl) List(since, until int64) ([]string, error) {
	keys, err := r.store.Scan(r.domain, "", 0)
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0, len(keys))
	low := timeBound(since)
	for _, key := range keys {
		if key < low {
			continue
		}
		// Scan returns keys ascending, everything after the upper bound
		// is out of the window as well.
		if until > 0 && key >= timeBound(until) {
			break
		}
		filtered = append(filtered, key)
	}
	return filtered, nil
}

func (r *recorderImpl) Fetch(key string) ([]byte, bool, error) {
	return r.store.Get(r.domain, key)
}

func (r *recorderImpl) Expire(olderThan int64) error {
	if olderThan <= 0 {
		return nil
	}
	// The bare time bound sorts before every real key of that timestamp,
	// so events recorded exactly at the cutoff survive.
	return r.store.RemoveRange(r.domain, "", timeBound(olderThan))
}
