// Package cmd implements the command-line interface for cellar. It provides
// a hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring a cellar server
//   - kv: Commands for key-value operations (get, set, scan, etc.)
//   - events: Commands for recording and querying events
//   - dump: Command for exporting a store directly from disk
//   - shell: An interactive client shell
//   - discover: Command for finding servers on the local network
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See cellar -help for a list of all commands.
package cmd
