package events

import (
	"github.com/cellardb/cellar/cmd/util"
	libevents "github.com/cellardb/cellar/lib/events"
	"github.com/cellardb/cellar/rpc/client"
	"github.com/spf13/cobra"
)

var (
	recorder libevents.IRecorder

	// EventCommands represents the events command group
	EventCommands = &cobra.Command{
		Use:               "events",
		Short:             "Record and inspect events",
		PersistentPreRunE: setupEventsClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the events command
	util.SetupRPCClientFlags(EventCommands)

	// Set default shard ID and domain for event operations
	EventCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))
	EventCommands.PersistentFlags().String("domain", "events", util.WrapString("Domain the events are recorded in"))

	// Add subcommands
	EventCommands.AddCommand(recordCmd)
	EventCommands.AddCommand(listCmd)
	EventCommands.AddCommand(fetchCmd)
	EventCommands.AddCommand(expireCmd)
}

// setupEventsClient initializes an event recorder over the RPC store client
func setupEventsClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the RPC store client
	rpcStore, err := client.NewRPCStore(
		shardId,
		*config,
		t,
		s,
	)
	if err != nil {
		return err
	}

	// The recorder writes through the remote store into the event domain
	recorder = libevents.NewRecorder(rpcStore, util.GetDomain())

	return nil
}
