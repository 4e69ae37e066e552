// Package events implements an event recording subsystem on top of
// key-value stores that implement the store.IStore interface. It is the
// consumer the fast write domain exists for: high-volume, individually
// expendable records whose writes must never throttle the producer.
//
// The recorder only ever stores in the provided IStore and has no other
// internal state. It is safe to create multiple recorders on the same
// store and domain; as long as the same store is used every time, all
// recorders see the same events.
//
// Core Functionality:
//   - Batched event recording under time-ordered keys
//   - Window queries over the recording timeline
//   - Expiration sweeps that drop everything older than a cutoff
//   - A package wide disable signal for degraded store states
//
// Implementation Approach:
//
//	Events are stored under keys of the form <unix-seconds>.<uuid>, with
//	the timestamp zero-padded to ten digits. Lexicographic key order is
//	therefore recording order, which maps every recorder operation onto
//	one store primitive:
//
//	- Record/RecordBatch: one atomic PutBatch into the event domain.
//
//	- List: one Scan, filtered to the requested time window by plain
//	  string comparison against the zero-padded bounds.
//
//	- Expire: one RemoveRange from the beginning of the key space up to
//	  the cutoff bound. The bare bound sorts before every real key of
//	  that timestamp, so the sweep is exclusive of the cutoff second.
//
// Disabled State:
//
//	When the backing store degrades to read-only operation its writes are
//	dropped silently. The package level Disable signal mirrors that state
//	into the event layer: recorders stop issuing writes altogether while
//	reads (List, Fetch) keep working. The signal is raised by the process
//	that owns the store lifecycle, typically at startup after SetUp
//	reports the degraded state.
//
// Usage Example:
//
//	recorder := events.NewRecorder(s, "events")
//
//	key, err := recorder.Record([]byte(`{"pid": 4223}`))
//	if err != nil {
//	    // Handle error
//	}
//
//	// Everything from the last hour
//	keys, err := recorder.List(time.Now().Unix()-3600, 0)
//
//	// Drop everything older than a day
//	err = recorder.Expire(time.Now().Unix() - 86400)
//
// Durability Considerations:
//
//	The recorder is typically pointed at the store's fast domain, whose
//	writes bypass the write-ahead log. A crash can lose the most recent
//	events; that trade is the fast domain's contract and the reason the
//	event layer, not the settings layer, lives on it.
package events
