package shell

import (
	"github.com/cellardb/cellar/cmd/util"
	"github.com/cellardb/cellar/lib/store"
	"github.com/cellardb/cellar/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore store.IStore

	// ShellCmd represents the interactive shell command
	ShellCmd = &cobra.Command{
		Use:     "shell",
		Short:   "Interactive shell for a cellar server",
		Long:    `Start an interactive shell against a cellar server. The shell supports line editing, history and tab completion. Type 'help' inside the shell for the available commands.`,
		PreRunE: setupShellClient,
		RunE:    runShell,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the shell command
	util.SetupRPCClientFlags(ShellCmd)

	// Set default shard ID and start domain
	ShellCmd.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))
	ShellCmd.PersistentFlags().String("domain", "settings", util.WrapString("Domain the shell starts in (switch with 'use')"))
}

// setupShellClient initializes the RPC store client
func setupShellClient(cmd *cobra.Command, _ []string) error {
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

	// Create the KV store client
	rpcStore, err = client.NewRPCStore(
		shardId,
		*config,
		t,
		s,
	)

	return err
}
