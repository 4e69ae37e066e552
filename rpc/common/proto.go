package common

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type" msgpack:"t"`

	// General fields
	Domain string `json:"domain,omitempty" msgpack:"d"`  // Addressed domain, set on every store request
	Key    string `json:"key,omitempty" msgpack:"k"`     // Used for: Get, GetInt, Put, Remove
	Value  []byte `json:"value,omitempty" msgpack:"v"`   // Used for: Put (request), Get and GetInt (response)
	Pairs  []Pair `json:"pairs,omitempty" msgpack:"p"`   // Used for: PutBatch requests
	Low    string `json:"low,omitempty" msgpack:"lo"`    // Used for: RemoveRange requests
	High   string `json:"high,omitempty" msgpack:"hi"`   // Used for: RemoveRange requests
	Prefix string `json:"prefix,omitempty" msgpack:"px"` // Used for: Scan requests
	Limit  int64  `json:"limit,omitempty" msgpack:"n"`   // Used for: Scan requests

	// Response only fields
	Keys []string `json:"keys,omitempty" msgpack:"ks"` // Used for: Scan responses
	Ok   bool     `json:"ok,omitempty" msgpack:"ok"`   // Used for: Get and GetInt responses
	Err  string   `json:"err,omitempty" msgpack:"e"`   // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty" msgpack:"m"` // Used for: Info responses, free for additional Adapters
}

// Pair is a single key-value pair carried by PutBatch requests.
type Pair struct {
	Key   string `json:"key" msgpack:"k"`
	Value []byte `json:"value,omitempty" msgpack:"v"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(domain, key string) *Message {
	return &Message{
		MsgType: MsgTStoreGet,
		Domain:  domain,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, loaded bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStoreGet,
		Ok:      loaded,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewGetIntRequest creates a new GetInt request
func NewGetIntRequest(domain, key string) *Message {
	return &Message{
		MsgType: MsgTStoreGetInt,
		Domain:  domain,
		Key:     key,
	}
}

// NewGetIntResponse creates a new GetInt response. The integer value is
// carried as decimal text in the Value field.
func NewGetIntResponse(value int64, loaded bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTStoreGetInt,
		Ok:      loaded,
	}
	if loaded {
		msg.Value = strconv.AppendInt(nil, value, 10)
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewPutRequest creates a new Put request
func NewPutRequest(domain, key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTStorePut,
		Domain:  domain,
		Key:     key,
		Value:   value,
	}
}

// NewPutResponse creates a new Put response
func NewPutResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTStorePut,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewPutBatchRequest creates a new PutBatch request
func NewPutBatchRequest(domain string, pairs []Pair) *Message {
	return &Message{
		MsgType: MsgTStorePutBatch,
		Domain:  domain,
		Pairs:   pairs,
	}
}

// NewPutBatchResponse creates a new PutBatch response
func NewPutBatchResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTStorePutBatch,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewRemoveRequest creates a new Remove request
func NewRemoveRequest(domain, key string) *Message {
	return &Message{
		MsgType: MsgTStoreRemove,
		Domain:  domain,
		Key:     key,
	}
}

// NewRemoveResponse creates a new Remove response
func NewRemoveResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTStoreRemove,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewRemoveRangeRequest creates a new RemoveRange request
func NewRemoveRangeRequest(domain, low, high string) *Message {
	return &Message{
		MsgType: MsgTStoreRemoveRange,
		Domain:  domain,
		Low:     low,
		High:    high,
	}
}

// NewRemoveRangeResponse creates a new RemoveRange response
func NewRemoveRangeResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTStoreRemoveRange,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewScanRequest creates a new Scan request
func NewScanRequest(domain, prefix string, limit int64) *Message {
	return &Message{
		MsgType: MsgTStoreScan,
		Domain:  domain,
		Prefix:  prefix,
		Limit:   limit,
	}
}

// NewScanResponse creates a new Scan response
func NewScanResponse(keys []string, err error) *Message {
	msg := &Message{
		MsgType: MsgTStoreScan,
		Keys:    keys,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTStoreInfo,
	}
}

// NewInfoResponse creates a new Info response. The meta payload carries the
// JSON encoded store info.
func NewInfoResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTStoreInfo,
		Meta:    meta,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTStoreGet:
		return "get"
	case MsgTStoreGetInt:
		return "getInt"
	case MsgTStorePut:
		return "put"
	case MsgTStorePutBatch:
		return "putBatch"
	case MsgTStoreRemove:
		return "remove"
	case MsgTStoreRemoveRange:
		return "removeRange"
	case MsgTStoreScan:
		return "scan"
	case MsgTStoreInfo:
		return "info"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "get":
		*t = MsgTStoreGet
	case "getInt":
		*t = MsgTStoreGetInt
	case "put":
		*t = MsgTStorePut
	case "putBatch":
		*t = MsgTStorePutBatch
	case "remove":
		*t = MsgTStoreRemove
	case "removeRange":
		*t = MsgTStoreRemoveRange
	case "scan":
		*t = MsgTStoreScan
	case "info":
		*t = MsgTStoreInfo
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTStoreGet         // Get a value by key
	MsgTStoreGetInt      // Get a value by key, parsed as integer
	MsgTStorePut         // Put a single key-value pair
	MsgTStorePutBatch    // Put multiple key-value pairs atomically
	MsgTStoreRemove      // Remove a single key
	MsgTStoreRemoveRange // Remove all keys in an inclusive range
	MsgTStoreScan        // List keys by prefix
	MsgTStoreInfo        // Retrieve store metadata

	// Custom operations

	MsgTCustom // Custom operation type
)
