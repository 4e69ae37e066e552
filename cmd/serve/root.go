package serve

import (
	"fmt"
	cmdUtil "github.com/cellardb/cellar/cmd/util"
	"github.com/cellardb/cellar/lib/store/pstore"
	"github.com/cellardb/cellar/rpc/common"
	"github.com/cellardb/cellar/rpc/discovery"
	"github.com/cellardb/cellar/rpc/serializer"
	"github.com/cellardb/cellar/rpc/server"
	"github.com/cellardb/cellar/rpc/transport"
	"github.com/cellardb/cellar/rpc/transport/http"
	"github.com/cellardb/cellar/rpc/transport/tcp"
	"github.com/cellardb/cellar/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strconv"
	"strings"
)

var (
	serveCmdConfig = &common.ServerConfig{}

	// discovery settings (not part of the server config proper)
	serveDiscovery bool
	serveNodeID    string

	ServeCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start the cellar server",
		Long:    `Start the cellar server with the specified configuration. The configuration can be set via command line flags, environment variables or a YAML manifest (--config). Flags set on the command line take precedence over manifest values. The format of the environment variables is CELLAR_<flag> (e.g. CELLAR_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "config"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Path to a YAML manifest with the server configuration"))

	key = "shards"
	ServeCmd.PersistentFlags().String(key, "100=data", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=PATH[@ENGINE] where ENGINE is one of: badger (default), ephemeral. Ephemeral shards need no path (e.g. '200=@ephemeral')"))

	key = "domains"
	ServeCmd.PersistentFlags().String(key, strings.Join(pstore.DefaultDomains, ","), cmdUtil.WrapString("Comma-separated list of domains every shard serves"))

	key = "fast-domain"
	ServeCmd.PersistentFlags().String(key, pstore.DefaultFastDomain, cmdUtil.WrapString("Domain whose writes trade durability for speed (must be one of the configured domains, empty disables)"))

	key = "write-required"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Refuse to start a shard that can not be opened writable (instead of degrading it to read-only)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Read/write deadline for client connections in seconds (0 disables)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/cellar.sock, ...)"))

	key = "compression"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Compress frame payloads (clients must enable compression too, ignored for http)"))

	key = "max-workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Maximum concurrent request workers per connection (0 selects the transport default)"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Receive buffer size per connection in bytes (0 selects the transport default)"))

	key = "metrics"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Enable request counters, exposed at /metrics when using the http transport"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warning, error)"))

	key = "discovery"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Advertise this server on the local network via mDNS (requires a tcp or http endpoint)"))

	key = "node-id"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Instance name used for mDNS discovery (defaults to the hostname)"))
}

// processConfig reads the configuration from the manifest, command line flags
// and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// load the manifest first (if any), flags set on the command line
	// override its values below
	manifestLoaded := false
	if path := viper.GetString("config"); path != "" {
		m, err := loadManifest(path)
		if err != nil {
			return err
		}
		if err := m.apply(serveCmdConfig); err != nil {
			return err
		}
		serveDiscovery = m.Discovery.Enabled
		serveNodeID = m.Discovery.NodeID
		manifestLoaded = true
	}

	// flagSet reports whether a value should be taken from the flag: always
	// without a manifest, otherwise only when set on the command line
	flagSet := func(key string) bool {
		return !manifestLoaded || cmd.Flags().Changed(key)
	}

	if flagSet("shards") {
		shards, err := parseShardSpec(viper.GetString("shards"))
		if err != nil {
			return err
		}
		serveCmdConfig.Shards = shards
	}
	if flagSet("domains") {
		serveCmdConfig.Domains = splitList(viper.GetString("domains"))
	}
	if flagSet("fast-domain") {
		serveCmdConfig.FastDomain = viper.GetString("fast-domain")
	}
	if flagSet("write-required") {
		serveCmdConfig.WriteRequired = viper.GetBool("write-required")
	}
	if flagSet("timeout") {
		serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	}
	if flagSet("endpoint") {
		serveCmdConfig.Transport.Endpoint = viper.GetString("endpoint")
	}
	if flagSet("compression") {
		serveCmdConfig.Transport.Compression = viper.GetBool("compression")
	}
	if flagSet("max-workers-per-conn") {
		serveCmdConfig.Transport.MaxWorkersPerConn = viper.GetInt("max-workers-per-conn")
	}
	if flagSet("buffer-size") {
		serveCmdConfig.Transport.BufferSize = viper.GetInt("buffer-size")
	}
	if flagSet("metrics") {
		serveCmdConfig.Metrics = viper.GetBool("metrics")
	}
	if flagSet("log-level") {
		serveCmdConfig.LogLevel = viper.GetString("log-level")
	}
	if flagSet("discovery") {
		serveDiscovery = viper.GetBool("discovery")
	}
	if flagSet("node-id") {
		serveNodeID = viper.GetString("node-id")
	}

	if len(serveCmdConfig.Shards) == 0 {
		return fmt.Errorf("at least one shard is required")
	}

	return nil
}

// run starts the cellar server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "msgpack":
		s = serializer.NewMsgpackSerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	// Advertise this instance before serving (tcp and http only, a unix
	// socket is not reachable over the network)
	if serveDiscovery {
		shardIDs := make([]uint64, len(serveCmdConfig.Shards))
		for i, shard := range serveCmdConfig.Shards {
			shardIDs[i] = shard.ShardID
		}

		adv, err := discovery.NewAdvertiser(discovery.Config{
			NodeID:    nodeID(),
			Endpoint:  serveCmdConfig.Transport.Endpoint,
			Transport: viper.GetString("transport"),
			Shards:    shardIDs,
			Version:   cmdUtil.Version,
		})
		if err != nil {
			return fmt.Errorf("failed to start discovery: %w", err)
		}
		defer adv.Shutdown()
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.Serve()
}

// nodeID returns the configured instance name, falling back to the hostname
func nodeID() string {
	if serveNodeID != "" {
		return serveNodeID
	}
	if hostname, err := os.Hostname(); err == nil {
		return hostname
	}
	return "cellar"
}

// parseShardSpec parses a comma-separated shard list of the form
// ID=PATH[@ENGINE], e.g. "100=data/100,200=@ephemeral"
func parseShardSpec(spec string) ([]common.ServerShard, error) {
	var shards []common.ServerShard
	seen := make(map[uint64]bool)

	for _, part := range strings.Split(spec, ",") {
		idStr, location, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("invalid shard format: %s (expected ID=PATH[@ENGINE])", part)
		}

		// Parse shard ID
		shardID, err := strconv.ParseUint(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid shard ID %s: %v", idStr, err)
		}
		if seen[shardID] {
			return nil, fmt.Errorf("duplicate shard ID %d", shardID)
		}
		seen[shardID] = true

		// Split off the engine name
		path, engine, _ := strings.Cut(strings.TrimSpace(location), "@")
		if path == "" && engine != "ephemeral" {
			return nil, fmt.Errorf("shard %d: a storage path is required for persistent engines", shardID)
		}

		shards = append(shards, common.ServerShard{
			ShardID: shardID,
			Path:    path,
			Engine:  engine,
		})
	}

	return shards, nil
}

// splitList splits a comma-separated list, trimming whitespace and
// dropping empty elements
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("cellar")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

}
