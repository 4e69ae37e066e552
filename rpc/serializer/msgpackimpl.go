package serializer

import (
	"github.com/cellardb/cellar/rpc/common"
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgpackSerializer creates a new serializer using the MessagePack format
func NewMsgpackSerializer() IRPCSerializer {
	return &msgpackSerializerImpl{}
}

// msgpackSerializerImpl implements the IRPCSerializer interface using
// MessagePack encoding. The Message struct carries single-letter msgpack
// field tags, keeping the encoded frames close in size to a hand-rolled
// binary format while staying schema-evolvable.
type msgpackSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (m msgpackSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (m msgpackSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return msgpack.Unmarshal(b, msg)
}
