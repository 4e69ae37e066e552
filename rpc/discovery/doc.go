// Package discovery implements zero-configuration discovery of cellar
// servers on the local network via multicast DNS (mDNS).
//
// Servers advertise themselves under the service type _cellar._tcp.local.
// Each instance publishes its node ID, the transport endpoint clients
// should connect to, the transport scheme of that endpoint, the shard IDs
// it serves and its version as TXT records.
//
// The package focuses on:
//   - Advertising a running server instance (see NewAdvertiser)
//   - Looking up advertised instances on the local network (see Lookup)
//
// Usage Example:
//
//	// Server side: advertise this instance
//	adv, err := discovery.NewAdvertiser(discovery.Config{
//	  NodeID:    "cellar-1",
//	  Endpoint:  "0.0.0.0:5000",
//	  Transport: "tcp",
//	  Shards:    []uint64{100},
//	  Version:   "1.0.0",
//	})
//	if err != nil {
//	  log.Fatalf("Discovery error: %v", err)
//	}
//	defer adv.Shutdown()
//
//	// Client side: find all instances on the network
//	nodes, err := discovery.Lookup(3 * time.Second)
//	for _, node := range nodes {
//	  fmt.Printf("%s %s (%s)\n", node.NodeID, node.Endpoint, node.Transport)
//	}
//
// Only endpoints reachable over the network can be advertised, a server
// listening on a unix socket has nothing to announce. Lookup listens for
// the given timeout and returns every instance that answered in that
// window, sorted by node ID.
package discovery
