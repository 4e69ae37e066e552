package client

import (
	"encoding/json"
	"fmt"
	"github.com/cellardb/cellar/lib/store"
	"github.com/cellardb/cellar/rpc/common"
	"github.com/cellardb/cellar/rpc/serializer"
	"github.com/cellardb/cellar/rpc/transport"
	"strconv"
)

// NewRPCStore creates a new RPC store
// The function takes a shard ID, a util, a transport and a serializer as parameters
// It returns a store.IStore and an error
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Get(domain, key string) (value []byte, loaded bool, err error) {
	req := common.NewGetRequest(domain, key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcStore) GetInt(domain, key string) (value int64, loaded bool, err error) {
	req := common.NewGetIntRequest(domain, key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return 0, false, err
	}
	if !resp.Ok {
		return 0, false, nil
	}
	// The server encodes the integer as decimal text in the value field
	value, err = strconv.ParseInt(string(resp.Value), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("RPC IStoreAdapter - Error: malformed integer value: %s", err)
	}
	return value, true, nil
}

func (i *rpcStore) Put(domain, key string, value []byte) (err error) {
	req := common.NewPutRequest(domain, key, value)
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

// PutInt encodes the integer client side, the wire only ever carries the
// decimal text representation
func (i *rpcStore) PutInt(domain, key string, value int64) (err error) {
	return i.Put(domain, key, strconv.AppendInt(nil, value, 10))
}

func (i *rpcStore) PutBatch(domain string, pairs []store.Pair) (err error) {
	wirePairs := make([]common.Pair, len(pairs))
	for idx, p := range pairs {
		wirePairs[idx] = common.Pair{Key: p.Key, Value: p.Value}
	}
	req := common.NewPutBatchRequest(domain, wirePairs)
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) Remove(domain, key string) (err error) {
	req := common.NewRemoveRequest(domain, key)
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) RemoveRange(domain, low, high string) (err error) {
	req := common.NewRemoveRangeRequest(domain, low, high)
	_, err = invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) Scan(domain, prefix string, limit int) (keys []string, err error) {
	req := common.NewScanRequest(domain, prefix, int64(limit))
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (i *rpcStore) GetStoreInfo() (info store.StoreInfo, err error) {
	req := common.NewInfoRequest()
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return store.StoreInfo{}, err
	}
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return store.StoreInfo{}, fmt.Errorf("RPC IStoreAdapter - Error: malformed store info: %s", err)
	}
	return info, nil
}
