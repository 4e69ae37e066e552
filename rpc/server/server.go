package server

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"github.com/cellardb/cellar/lib/engine"
	"github.com/cellardb/cellar/lib/engine/badgerdb"
	"github.com/cellardb/cellar/lib/engine/ephemeral"
	"github.com/cellardb/cellar/lib/logger"
	"github.com/cellardb/cellar/lib/store"
	"github.com/cellardb/cellar/lib/store/pstore"
	"github.com/cellardb/cellar/rpc/common"
	"github.com/cellardb/cellar/rpc/serializer"
	"github.com/cellardb/cellar/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"os/signal"
	"runtime"
	"syscall"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the store it encapsulates and the adapter
// that handles requests for the store
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := rpc.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create shards map
	shardMap := xsync.NewMapOf[uint64, serverShard]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Get appropriate shard
		shard, ok := s.shards.Load(shardId)

		// Case shard does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Let the adapter handle the request
				respMsg = *shard.Adapter.Handle(&msg, shard.Store)
			}
		}

		// Count requests and errors per shard and message type (exposed
		// via the http transport's /metrics endpoint). A request that
		// failed to deserialize is counted under the "unknown" type.
		if s.config.Metrics {
			metrics.GetOrCreateCounter(fmt.Sprintf(`cellar_rpc_requests_total{shard="%d",type="%s"}`, shardId, msg.MsgType)).Inc()
			if respMsg.Err != "" {
				metrics.GetOrCreateCounter(fmt.Sprintf(`cellar_rpc_errors_total{shard="%d",type="%s"}`, shardId, msg.MsgType)).Inc()
			}
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			}
		}
		return val
	})
}

// engineFactory resolves a configured engine name to its constructor.
// The empty name selects badger, the default persistent engine.
func engineFactory(name string) (engine.Factory, error) {
	switch name {
	case "", "badger":
		return badgerdb.New, nil
	case "ephemeral":
		return ephemeral.New, nil
	default:
		return nil, fmt.Errorf("unknown engine: %q", name)
	}
}

func (s *rpcServer) init() error {

	// Init logger
	if err := logger.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	// CREATE SHARDS

	/*
		Note: A single RPC Server can have any number of shards. Each shard
		encapsulates its own store (with its own data directory and engine),
		while all shards share the same domain layout. The following loop
		creates all the shards and stores them for the RPC server.
	*/

	for _, shardConfig := range s.config.Shards {

		factory, err := engineFactory(shardConfig.Engine)
		if err != nil {
			return fmt.Errorf("shard %d: %w", shardConfig.ShardID, err)
		}

		st, err := pstore.New(pstore.Config{
			Path:          shardConfig.Path,
			Domains:       s.config.Domains,
			FastDomain:    s.config.FastDomain,
			WriteRequired: s.config.WriteRequired,
			Engine:        factory,
		})
		if err != nil {
			return fmt.Errorf("failed to create store for shard %d: %w", shardConfig.ShardID, err)
		}

		if err := st.SetUp(); err != nil {
			return fmt.Errorf("failed to open store for shard %d: %w", shardConfig.ShardID, err)
		}

		s.shards.Store(shardConfig.ShardID, serverShard{
			Store:   st,
			Adapter: NewIStoreServerAdapter(),
		})
		Logger.Infof("opened store for shard %d at %s (state: %s)", shardConfig.ShardID, shardConfig.Path, st.State())
	}

	Logger.Infof("cellar setup completed successfully")

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}
