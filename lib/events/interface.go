package events

// IRecorder defines the interface for an event recorder.
type IRecorder interface {
	// Record stores one event payload under a fresh time-ordered key and
	// returns that key. While recording is disabled the payload is dropped
	// silently and the returned key is empty.
	Record(payload []byte) (key string, err error)

	// RecordBatch stores many payloads in one atomic write and returns
	// their keys. While recording is disabled nothing is stored and the
	// returned key list is nil.
	RecordBatch(payloads [][]byte) (keys []string, err error)

	// List returns the keys of all events recorded at or after since and
	// before until, in recording order. A since <= 0 means from the
	// beginning, an until <= 0 means no upper bound. Timestamps are unix
	// seconds.
	List(since, until int64) (keys []string, err error)

	// Fetch returns the payload stored under an event key. The boolean
	// return value indicates whether the event exists.
	Fetch(key string) (payload []byte, found bool, err error)

	// Expire removes every event recorded before the cutoff timestamp
	// (unix seconds). A cutoff <= 0 is a no-op.
	Expire(olderThan int64) error
}
