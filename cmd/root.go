package cmd

import (
	"fmt"
	"github.com/cellardb/cellar/cmd/discover"
	"github.com/cellardb/cellar/cmd/dump"
	"github.com/cellardb/cellar/cmd/events"
	"github.com/cellardb/cellar/cmd/kv"
	"github.com/cellardb/cellar/cmd/serve"
	"github.com/cellardb/cellar/cmd/shell"
	"github.com/cellardb/cellar/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "cellar",
		Short: "embedded domain-partitioned key-value store",
		Long: fmt.Sprintf(`cellar (v%s)

An embedded, domain-partitioned key-value store written in Go,
with verified on-disk state, per-domain durability and remote
access over pluggable transports.`, util.Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cellar",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cellar v%s\n", util.Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(events.EventCommands)
	RootCmd.AddCommand(dump.DumpCmd)
	RootCmd.AddCommand(shell.ShellCmd)
	RootCmd.AddCommand(discover.DiscoverCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, msgpack)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
