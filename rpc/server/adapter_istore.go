package server

import (
	"encoding/json"
	"fmt"
	"github.com/cellardb/cellar/lib/store"
	"github.com/cellardb/cellar/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, st store.IStore) *common.Message {
	// Check for nil store
	if st == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTStoreGet:
		val, loaded, err := st.Get(req.Domain, req.Key)
		return common.NewGetResponse(val, loaded, err)
	case common.MsgTStoreGetInt:
		val, loaded, err := st.GetInt(req.Domain, req.Key)
		return common.NewGetIntResponse(val, loaded, err)
	case common.MsgTStorePut:
		err := st.Put(req.Domain, req.Key, req.Value)
		return common.NewPutResponse(err)
	case common.MsgTStorePutBatch:
		pairs := make([]store.Pair, len(req.Pairs))
		for i, p := range req.Pairs {
			pairs[i] = store.Pair{Key: p.Key, Value: p.Value}
		}
		err := st.PutBatch(req.Domain, pairs)
		return common.NewPutBatchResponse(err)
	case common.MsgTStoreRemove:
		err := st.Remove(req.Domain, req.Key)
		return common.NewRemoveResponse(err)
	case common.MsgTStoreRemoveRange:
		err := st.RemoveRange(req.Domain, req.Low, req.High)
		return common.NewRemoveRangeResponse(err)
	case common.MsgTStoreScan:
		keys, err := st.Scan(req.Domain, req.Prefix, int(req.Limit))
		return common.NewScanResponse(keys, err)
	case common.MsgTStoreInfo:
		info, err := st.GetStoreInfo()
		if err != nil {
			return common.NewInfoResponse(nil, err)
		}
		meta, err := json.Marshal(info)
		return common.NewInfoResponse(meta, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsuported message type: %s", req.MsgType),
		)
	}
}
