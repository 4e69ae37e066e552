// Package client implements the RPC client for the cellar store.
// It provides an implementation of the store.IStore interface
// that communicates with a remote server via RPC.
//
// The package focuses on:
//   - Transparent RPC access to a remote store implementation
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and store errors
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the store.IStore
//     interface. This client forwards all operations to a remote server via the configured
//     transport layer.
//
// Usage Example:
//
//		// Configure the client
//		util := common.ClientConfig{
//		  TimeoutSecond: 5,
//		  Transport: common.ClientTransportConfig{
//		    Endpoints:              []string{"localhost:5000"},
//		    RetryCount:             3,
//		    ConnectionsPerEndpoint: 1,
//		  },
//		}
//
//	 // Create a serializer
//		serializer := serializer.NewMsgpackSerializer()
//
//		// Create store client
//		store, _ := client.NewRPCStore(1, util, tcp.NewTCPClientTransport(), serializer)
//
//		// Use the store
//		store.Put("settings", "mykey", []byte("myvalue"))
//		value, exists, _ := store.Get("settings", "mykey")
//
// The returned client is an unrestricted store.IStore: integer helpers are
// mapped onto the plain get/put wire operations (the wire only ever carries
// the decimal text encoding), and GetStoreInfo queries the remote server for
// the metadata of the shard's store.
//
// Thread Safety:
//
//	All clients provided by this package are thread-safe and can be used
//	concurrently from multiple goroutines. The underlying transport handles
//	connection pooling and request multiplexing.
package client
