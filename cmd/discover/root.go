package discover

import (
	"encoding/json"
	"fmt"
	"github.com/cellardb/cellar/cmd/util"
	"github.com/cellardb/cellar/rpc/discovery"
	"github.com/spf13/cobra"
	"io"
	"log"
	"strconv"
	"strings"
)

var DiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Finds cellar servers on the local network",
	Long:  `Queries the local network for cellar servers via mDNS and prints every instance that answered. Servers only show up when started with --discovery.`,
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

func init() {
	DiscoverCmd.Flags().Duration("timeout", discovery.DefaultLookupTimeout, util.WrapString("How long to listen for answers"))
	DiscoverCmd.Flags().Bool("json", false, util.WrapString("Print the discovered instances as JSON"))
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	asJSON, _ := cmd.Flags().GetBool("json")

	// the mdns library logs non-critical IPv6 bind errors on the global logger
	log.SetOutput(io.Discard)

	nodes, err := discovery.Lookup(timeout)
	if err != nil {
		return err
	}

	if asJSON {
		out, err := json.MarshalIndent(nodes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(nodes) == 0 {
		fmt.Println("no servers found")
		return nil
	}

	fmt.Printf("%-20s %-28s %-10s %-16s %s\n", "NODE", "ENDPOINT", "TRANSPORT", "SHARDS", "VERSION")
	for _, node := range nodes {
		fmt.Printf("%-20s %-28s %-10s %-16s %s\n",
			node.NodeID, node.Endpoint, node.Transport, joinShards(node.Shards), node.Version)
	}
	fmt.Printf("\n%d server(s) found in %s\n", len(nodes), timeout)

	return nil
}

// joinShards renders shard IDs as a comma separated list
func joinShards(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}
