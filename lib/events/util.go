package events

import (
	"fmt"

	"github.com/google/uuid"
)

// eventKey builds the storage key for an event recorded at the given unix
// timestamp. The zero-padded decimal prefix keeps keys time-ordered under
// lexicographic comparison, the uuid suffix keeps them unique within a
// second.
func eventKey(ts int64) string {
	return fmt.Sprintf("%010d.%s", ts, uuid.NewString())
}

// timeBound builds the key bound for a unix timestamp. It sorts after
// every key of earlier timestamps and before every key of the timestamp
// itself.
func timeBound(ts int64) string {
	return fmt.Sprintf("%010d", ts)
}
