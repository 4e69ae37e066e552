package serve

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cellardb/cellar/rpc/common"
)

func TestParseShardSpec(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		expected []common.ServerShard
		wantErr  bool
	}{
		{
			name:     "single shard default engine",
			spec:     "100=data",
			expected: []common.ServerShard{{ShardID: 100, Path: "data"}},
		},
		{
			name:     "explicit engine",
			spec:     "100=data/100@badger",
			expected: []common.ServerShard{{ShardID: 100, Path: "data/100", Engine: "badger"}},
		},
		{
			name:     "ephemeral without path",
			spec:     "200=@ephemeral",
			expected: []common.ServerShard{{ShardID: 200, Engine: "ephemeral"}},
		},
		{
			name: "multiple shards",
			spec: "100=data/100, 200=@ephemeral",
			expected: []common.ServerShard{
				{ShardID: 100, Path: "data/100"},
				{ShardID: 200, Engine: "ephemeral"},
			},
		},
		{
			name:    "missing separator",
			spec:    "100",
			wantErr: true,
		},
		{
			name:    "non numeric ID",
			spec:    "abc=data",
			wantErr: true,
		},
		{
			name:    "duplicate ID",
			spec:    "100=a,100=b",
			wantErr: true,
		},
		{
			name:    "persistent engine without path",
			spec:    "100=",
			wantErr: true,
		},
		{
			name:    "badger without path",
			spec:    "100=@badger",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shards, err := parseShardSpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for spec %q, got %+v", tt.spec, shards)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for spec %q: %v", tt.spec, err)
			}
			if !reflect.DeepEqual(shards, tt.expected) {
				t.Errorf("Unexpected shards for spec %q:\nExpected: %+v\nGot: %+v", tt.spec, tt.expected, shards)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in       string
		expected []string
	}{
		{"settings,schedule,events,results", []string{"settings", "schedule", "events", "results"}},
		{" a , b ", []string{"a", "b"}},
		{"single", []string{"single"}},
		{"", nil},
		{" , ", nil},
	}

	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("splitList(%q) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}

func TestLoadManifest(t *testing.T) {
	content := `
log_level: debug
timeout: 15
metrics: true

store:
  domains: [settings, schedule, events, results]
  fast_domain: events
  write_required: true

transport:
  endpoint: 0.0.0.0:5000
  compression: true
  max_workers_per_conn: 8

shards:
  - id: 100
    path: data/100
  - id: 200
    engine: ephemeral

discovery:
  enabled: true
  node_id: cellar-1
`
	path := filepath.Join(t.TempDir(), "cellar.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	m, err := loadManifest(path)
	if err != nil {
		t.Fatalf("Failed to load manifest: %v", err)
	}

	var cfg common.ServerConfig
	if err := m.apply(&cfg); err != nil {
		t.Fatalf("Failed to apply manifest: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.TimeoutSecond != 15 {
		t.Errorf("Expected timeout 15, got %d", cfg.TimeoutSecond)
	}
	if !cfg.Metrics {
		t.Errorf("Expected metrics enabled")
	}
	if !reflect.DeepEqual(cfg.Domains, []string{"settings", "schedule", "events", "results"}) {
		t.Errorf("Unexpected domains: %v", cfg.Domains)
	}
	if cfg.FastDomain != "events" {
		t.Errorf("Expected fast domain events, got %s", cfg.FastDomain)
	}
	if !cfg.WriteRequired {
		t.Errorf("Expected write required")
	}
	if cfg.Transport.Endpoint != "0.0.0.0:5000" {
		t.Errorf("Expected endpoint 0.0.0.0:5000, got %s", cfg.Transport.Endpoint)
	}
	if !cfg.Transport.Compression {
		t.Errorf("Expected compression enabled")
	}
	if cfg.Transport.MaxWorkersPerConn != 8 {
		t.Errorf("Expected 8 workers per conn, got %d", cfg.Transport.MaxWorkersPerConn)
	}

	expectedShards := []common.ServerShard{
		{ShardID: 100, Path: "data/100"},
		{ShardID: 200, Engine: "ephemeral"},
	}
	if !reflect.DeepEqual(cfg.Shards, expectedShards) {
		t.Errorf("Unexpected shards:\nExpected: %+v\nGot: %+v", expectedShards, cfg.Shards)
	}

	if !m.Discovery.Enabled || m.Discovery.NodeID != "cellar-1" {
		t.Errorf("Unexpected discovery settings: %+v", m.Discovery)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	if _, err := loadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Expected error for missing manifest")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("shards: [\n"), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
	if _, err := loadManifest(path); err == nil {
		t.Errorf("Expected error for malformed manifest")
	}

	// Duplicate shard IDs are rejected when applying
	dup := &manifest{Shards: []manifestShard{
		{ID: 100, Path: "a"},
		{ID: 100, Path: "b"},
	}}
	var cfg common.ServerConfig
	if err := dup.apply(&cfg); err == nil {
		t.Errorf("Expected error for duplicate shard IDs")
	}
}
