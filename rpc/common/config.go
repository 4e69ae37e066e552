package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerShard describes one store instance served by a node. Requests
// carry a shard ID and are routed to the store opened for it.
type ServerShard struct {
	// ShardID is the ID the shard is addressed by in requests
	ShardID uint64
	// Path is the storage directory of the shard
	Path string
	// Engine selects the storage engine ("badger" or "ephemeral")
	Engine string
}

// ServerTransportConfig holds the transport level settings of a server.
type ServerTransportConfig struct {
	// Endpoint is the address the server listens on
	// (host:port for tcp/http, a file path for unix sockets)
	Endpoint string

	// MaxWorkersPerConn limits concurrent request workers per connection
	MaxWorkersPerConn int

	// BufferSize is the receive buffer size per connection in bytes
	BufferSize int

	// Compression enables snappy compression of frame payloads
	Compression bool

	// TCPConf socket tuning (ignored by other transports)
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	ReadBufferSize  int
	WriteBufferSize int
}

// ServerConfig holds all configuration parameters for a server node.
type ServerConfig struct {
	// Shards served by this node
	Shards []ServerShard

	// Store parameters (shared by all shards)
	Domains       []string
	FastDomain    string
	WriteRequired bool

	// Request timeout (read/write deadlines, 0 disables)
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// Logging configuration
	LogLevel string

	// Metrics enables request counters (exposed via the http transport)
	Metrics bool
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.MaxWorkersPerConn))
	addField("Compression", fmt.Sprintf("%t", c.Transport.Compression))
	addField("Metrics", fmt.Sprintf("%t", c.Metrics))

	// Store parameters
	addSection("Store")
	addField("Domains", strings.Join(c.Domains, ", "))
	addField("Fast Domain", c.FastDomain)
	addField("Write Required", fmt.Sprintf("%t", c.WriteRequired))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Shards
	addSection("Shards")
	for _, shard := range c.Shards {
		addField(strconv.FormatUint(shard.ShardID, 10),
			fmt.Sprintf("%s (%s)", shard.Path, shard.Engine))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the transport level settings of a client.
type ClientTransportConfig struct {
	// Endpoints lists the server addresses requests are balanced over
	Endpoints []string

	// RetryCount is the number of send attempts per request
	RetryCount int

	// ConnectionsPerEndpoint is the connection pool size per endpoint
	ConnectionsPerEndpoint int

	// Compression enables snappy compression of frame payloads
	Compression bool

	// TCPConf socket tuning (ignored by other transports)
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	ReadBufferSize  int
	WriteBufferSize int
}

// ClientConfig holds all configuration parameters for a client.
type ClientConfig struct {
	// Request timeout (0 disables)
	TimeoutSecond int

	// Transport settings
	Transport ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))
	addField("Compression", fmt.Sprintf("%t", c.Transport.Compression))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
