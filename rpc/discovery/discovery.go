package discovery

import (
	"fmt"
	"github.com/cellardb/cellar/lib/logger"
	"github.com/hashicorp/mdns"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"
)

var Logger = logger.GetLogger("discovery")

const (
	// ServiceType is the mDNS service type under which cellar servers
	// advertise themselves (fully qualified: _cellar._tcp.local.)
	ServiceType = "_cellar._tcp"

	// DefaultLookupTimeout is the default amount of time a lookup
	// listens for mDNS responses
	DefaultLookupTimeout = 3 * time.Second
)

// Config describes the service instance to advertise
type Config struct {
	NodeID    string   // Instance name, must be unique per server process
	Endpoint  string   // Advertised transport endpoint (host:port)
	Transport string   // Transport scheme the endpoint speaks (e.g. tcp, http)
	Shards    []uint64 // Shard IDs served by this node
	Version   string   // Server version string
}

// Node is a server instance found via mDNS lookup
type Node struct {
	NodeID    string   // Instance name of the node
	Endpoint  string   // Transport endpoint as advertised by the node
	Transport string   // Transport scheme of the endpoint
	Shards    []uint64 // Shard IDs served by the node
	Version   string   // Server version string
	Addr      string   // host:port resolved from the mDNS entry itself
}

// Advertiser announces a single server instance via multicast DNS.
// Create it with NewAdvertiser and release it with Shutdown.
type Advertiser struct {
	config Config
	server *mdns.Server
}

// NewAdvertiser starts advertising the given service instance.
// It returns an error if the endpoint is not a host:port pair, mDNS can
// only announce endpoints that are reachable over the network.
func NewAdvertiser(config Config) (*Advertiser, error) {
	// Parse the advertised endpoint to get host and port
	host, portStr, err := net.SplitHostPort(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", config.Endpoint, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint port %q: %w", portStr, err)
	}

	// An unspecified host means the server listens on all interfaces,
	// in that case announce every non-loopback address
	var ips []net.IP
	if host == "" || host == "0.0.0.0" || host == "::" {
		ips = localIPs()
	} else if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	}

	service, err := mdns.NewMDNSService(
		config.NodeID,
		ServiceType,
		"", // Domain (empty = .local)
		"", // Host name (empty = auto)
		port,
		ips,
		txtRecords(config),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS server: %w", err)
	}

	Logger.Infof("advertising %s as %s (%s %s)", config.NodeID, ServiceType, config.Transport, config.Endpoint)

	return &Advertiser{config: config, server: server}, nil
}

// Shutdown stops the advertisement
func (a *Advertiser) Shutdown() error {
	Logger.Infof("stopped advertising %s", a.config.NodeID)
	return a.server.Shutdown()
}

// Lookup queries the local network for cellar servers and returns every
// instance that answered within the timeout. A timeout of zero selects
// DefaultLookupTimeout.
func Lookup(timeout time.Duration) ([]*Node, error) {
	if timeout == 0 {
		timeout = DefaultLookupTimeout
	}

	entriesCh := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []*Node, 1)

	// Collect and parse entries while the query runs
	go func() {
		var nodes []*Node
		for entry := range entriesCh {
			if node := parseServiceEntry(entry); node != nil {
				nodes = append(nodes, node)
			}
		}
		done <- nodes
	}()

	params := &mdns.QueryParam{
		Service:             ServiceType,
		Domain:              "local",
		Timeout:             timeout,
		Entries:             entriesCh,
		WantUnicastResponse: true,
	}

	err := mdns.Query(params)
	close(entriesCh)
	nodes := <-done

	if err != nil {
		return nil, fmt.Errorf("mDNS query failed: %w", err)
	}

	// Stable output order regardless of response arrival
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })

	return nodes, nil
}

// txtRecords encodes the instance metadata as key=value TXT records
func txtRecords(config Config) []string {
	return []string{
		fmt.Sprintf("node_id=%s", config.NodeID),
		fmt.Sprintf("endpoint=%s", config.Endpoint),
		fmt.Sprintf("transport=%s", config.Transport),
		fmt.Sprintf("shards=%s", formatShardList(config.Shards)),
		fmt.Sprintf("version=%s", config.Version),
	}
}

// parseServiceEntry converts an mDNS service entry into a Node.
// Entries without a usable address are dropped.
func parseServiceEntry(entry *mdns.ServiceEntry) *Node {
	if entry == nil {
		return nil
	}

	var ip string
	if entry.AddrV4 != nil {
		ip = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		ip = entry.AddrV6.String()
	}
	if ip == "" {
		return nil
	}

	node := &Node{
		Addr: net.JoinHostPort(ip, strconv.Itoa(entry.Port)),
	}

	for _, txt := range entry.InfoFields {
		key, value, ok := strings.Cut(txt, "=")
		if !ok {
			continue
		}
		switch key {
		case "node_id":
			node.NodeID = value
		case "endpoint":
			node.Endpoint = value
		case "transport":
			node.Transport = value
		case "shards":
			node.Shards = parseShardList(value)
		case "version":
			node.Version = value
		}
	}

	// Older entries without TXT metadata still carry the instance name
	if node.NodeID == "" {
		node.NodeID = entry.Name
	}
	if node.Endpoint == "" {
		node.Endpoint = node.Addr
	}

	return node
}

// formatShardList encodes shard IDs as a comma separated list
func formatShardList(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

// parseShardList decodes a comma separated shard ID list, silently
// skipping malformed elements
func parseShardList(s string) []uint64 {
	if s == "" {
		return nil
	}
	var ids []uint64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// localIPs returns all non-loopback IPv4 addresses of this host
func localIPs() []net.IP {
	var ips []net.IP

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ips
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			if ipnet.IP.IsLoopback() {
				continue
			}
			if ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips
}
