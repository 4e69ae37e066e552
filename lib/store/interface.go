package store

import (
	"fmt"

	"github.com/cellardb/cellar/lib/engine"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Pair is a single key-value pair for batched writes.
type Pair struct {
	Key   string
	Value []byte
}

// IStore is the generic interface for interacting with a domain-partitioned
// key-value store. All write operations return only an error (nil on
// success), while read operations return the requested data along with an
// error (nil on success).
//
// A domain is a named partition of the key space; every operation addresses
// exactly one domain. Which domains exist is fixed per store instance.
type IStore interface {
	// Get returns the value for a key. The boolean return value indicates
	// whether a value for the key was found; a missing key is not an error.
	Get(domain, key string) (value []byte, loaded bool, err error)
	// GetInt returns the value for a key parsed as a decimal integer. The
	// boolean return value indicates whether a value for the key was found.
	// A value that does not parse as an integer yields an error.
	GetInt(domain, key string) (value int64, loaded bool, err error)
	// Put inserts or updates a single key-value pair.
	Put(domain, key string, value []byte) (err error)
	// PutInt inserts or updates a single key with the decimal text encoding
	// of the given integer.
	PutInt(domain, key string, value int64) (err error)
	// PutBatch atomically inserts or updates all given pairs: either every
	// pair is applied or none is.
	PutBatch(domain string, pairs []Pair) (err error)
	// Remove deletes a single key. Removing an absent key is not an error.
	Remove(domain, key string) (err error)
	// RemoveRange deletes every key in [low, high] (inclusive of high).
	// If low > high the call is a no-op.
	RemoveRange(domain, low, high string) (err error)
	// Scan returns the keys of a domain in ascending lexicographic order,
	// filtered to those starting with prefix. A limit > 0 caps the number
	// of returned keys; limit <= 0 returns all matching keys.
	Scan(domain, prefix string, limit int) (keys []string, err error)
	// GetStoreInfo returns metadata about the store and its underlying
	// engine. It is not guaranteed that all fields are filled in or that
	// the information is up-to-date!
	GetStoreInfo() (info StoreInfo, err error)
}

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// StoreInfo describes a store instance and the engine underneath it.
type StoreInfo struct {
	Path      string            `json:"path"`
	State     string            `json:"state"`
	Domains   []string          `json:"domains"`
	ReadOnly  bool              `json:"read_only"`
	Corrupted bool              `json:"corrupted"`
	Engine    engine.EngineInfo `json:"engine"`
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// NewErrorf creates a new KVStoreError with the given code and a formatted
// message.
func NewErrorf(code RetCode, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the underlying engine.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCConfigError                         // 4: Bad path, permissions or store configuration.
	RetCNotOpened                           // 5: Operation against a store that is not open.
	RetCDomainNotFound                      // 6: The addressed domain does not exist.
	RetCCorruption                          // 7: The engine reported structural corruption.
	RetCOpenFailed                          // 8: Mandatory write-open failed.
	RetCIOError                             // 9: A commit failed with a filesystem level error.
	RetCDeserialization                     // 10: A typed read could not parse the stored value.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCConfigError:
		return "ConfigError"
	case RetCNotOpened:
		return "NotOpened"
	case RetCDomainNotFound:
		return "DomainNotFound"
	case RetCCorruption:
		return "Corruption"
	case RetCOpenFailed:
		return "OpenFailed"
	case RetCIOError:
		return "IOError"
	case RetCDeserialization:
		return "Deserialization"
	default:
		return "Unknown"
	}
}
