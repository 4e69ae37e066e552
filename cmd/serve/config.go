package serve

import (
	"fmt"
	"github.com/cellardb/cellar/rpc/common"
	"gopkg.in/yaml.v3"
	"os"
)

// manifest is the YAML representation of a full server configuration.
// Example:
//
//	log_level: info
//	timeout: 5
//	metrics: true
//
//	store:
//	  domains: [settings, schedule, events, results]
//	  fast_domain: events
//	  write_required: false
//
//	transport:
//	  endpoint: 0.0.0.0:8080
//	  compression: true
//
//	shards:
//	  - id: 100
//	    path: data/100
//	  - id: 200
//	    engine: ephemeral
//
//	discovery:
//	  enabled: true
//	  node_id: cellar-1
type manifest struct {
	LogLevel  string            `yaml:"log_level"`
	Timeout   int64             `yaml:"timeout"`
	Metrics   bool              `yaml:"metrics"`
	Store     manifestStore     `yaml:"store"`
	Transport manifestTransport `yaml:"transport"`
	Shards    []manifestShard   `yaml:"shards"`
	Discovery manifestDiscovery `yaml:"discovery"`
}

type manifestStore struct {
	Domains       []string `yaml:"domains"`
	FastDomain    string   `yaml:"fast_domain"`
	WriteRequired bool     `yaml:"write_required"`
}

type manifestTransport struct {
	Endpoint          string `yaml:"endpoint"`
	Compression       bool   `yaml:"compression"`
	MaxWorkersPerConn int    `yaml:"max_workers_per_conn"`
	BufferSize        int    `yaml:"buffer_size"`
	TCPNoDelay        bool   `yaml:"tcp_no_delay"`
	TCPKeepAliveSec   int    `yaml:"tcp_keep_alive_sec"`
	TCPLingerSec      int    `yaml:"tcp_linger_sec"`
	ReadBufferSize    int    `yaml:"read_buffer_size"`
	WriteBufferSize   int    `yaml:"write_buffer_size"`
}

type manifestShard struct {
	ID     uint64 `yaml:"id"`
	Path   string `yaml:"path"`
	Engine string `yaml:"engine"`
}

type manifestDiscovery struct {
	Enabled bool   `yaml:"enabled"`
	NodeID  string `yaml:"node_id"`
}

// loadManifest reads and parses a YAML manifest file
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	m := &manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	return m, nil
}

// apply copies the manifest values into the server configuration
func (m *manifest) apply(cfg *common.ServerConfig) error {
	cfg.Shards = nil
	seen := make(map[uint64]bool)
	for _, shard := range m.Shards {
		if seen[shard.ID] {
			return fmt.Errorf("duplicate shard ID %d in manifest", shard.ID)
		}
		seen[shard.ID] = true

		if shard.Path == "" && shard.Engine != "ephemeral" {
			return fmt.Errorf("shard %d: a storage path is required for persistent engines", shard.ID)
		}

		cfg.Shards = append(cfg.Shards, common.ServerShard{
			ShardID: shard.ID,
			Path:    shard.Path,
			Engine:  shard.Engine,
		})
	}

	cfg.Domains = m.Store.Domains
	cfg.FastDomain = m.Store.FastDomain
	cfg.WriteRequired = m.Store.WriteRequired

	cfg.TimeoutSecond = m.Timeout
	cfg.LogLevel = m.LogLevel
	cfg.Metrics = m.Metrics

	cfg.Transport = common.ServerTransportConfig{
		Endpoint:          m.Transport.Endpoint,
		Compression:       m.Transport.Compression,
		MaxWorkersPerConn: m.Transport.MaxWorkersPerConn,
		BufferSize:        m.Transport.BufferSize,
		TCPNoDelay:        m.Transport.TCPNoDelay,
		TCPKeepAliveSec:   m.Transport.TCPKeepAliveSec,
		TCPLingerSec:      m.Transport.TCPLingerSec,
		ReadBufferSize:    m.Transport.ReadBufferSize,
		WriteBufferSize:   m.Transport.WriteBufferSize,
	}

	return nil
}
