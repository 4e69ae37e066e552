// Package server implements the RPC server for the cellar store.
// It provides the adapter for handling RPC requests against a store,
// along with the core server implementation that manages shards and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for domain-addressed store operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Flexible shard configuration, one store (data directory plus engine) per shard
//   - Request and error counters per shard, exposed via the http transport's /metrics endpoint
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating an adapter for key-value
//     store operations, translating RPC requests to store.IStore method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 100, Path: "/var/lib/cellar/100", Engine: "badger"},
//	    {ShardID: 200, Path: "", Engine: "ephemeral"},
//	  },
//	  Domains: []string{"settings", "schedule", "events", "results"},
//	  FastDomain: "events",
//	  Transport: common.ServerTransportConfig{
//	    Endpoint: "0.0.0.0:8080",
//	  },
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewMsgpackSerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Each shard opens its own store during initialization. A store whose
// on-disk data fails verification comes up read-only (or not at all when
// WriteRequired is set); the shard still serves read requests in that case,
// and write requests return the store's error to the client.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	Across multiple connections. Each request is processed independently.
//	The Listen method is not thread-safe and should be called only once.
package server
