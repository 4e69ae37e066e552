package kv

import (
	"encoding/json"
	"fmt"
	"github.com/cellardb/cellar/cmd/util"
	"github.com/cellardb/cellar/lib/store"
	"github.com/spf13/cobra"
	"strconv"
	"strings"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if err := rpcStore.Put(util.GetDomain(), key, []byte(value)); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	setIntCmd = &cobra.Command{
		Use:   "setInt [key] [value]",
		Short: "Sets the integer value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("value must be an integer: %w", err)
			}
			if err := rpcStore.PutInt(util.GetDomain(), key, value); err != nil {
				return err
			} else {
				fmt.Println("setInt successfully")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if resp, ok, err := rpcStore.Get(util.GetDomain(), key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			}
			return nil
		},
	}
	getIntCmd = &cobra.Command{
		Use:   "getInt [key]",
		Short: "Reads the value for a key as an integer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if value, ok, err := rpcStore.GetInt(util.GetDomain(), key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, value=%d\n", key, ok, value)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := rpcStore.Remove(util.GetDomain(), key); err != nil {
				return err
			} else {
				fmt.Println("delete successfully")
			}
			return nil
		},
	}
	rmRangeCmd = &cobra.Command{
		Use:   "rmRange [low] [high]",
		Short: "Deletes every key in the range [low, high] (inclusive)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			low := args[0]
			high := args[1]
			if err := rpcStore.RemoveRange(util.GetDomain(), low, high); err != nil {
				return err
			} else {
				fmt.Println("range removed successfully")
			}
			return nil
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [prefix]",
		Short: "Lists the keys of a domain in ascending order, optionally filtered by prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}
			limit, _ := cmd.Flags().GetInt("limit")
			keys, err := rpcStore.Scan(util.GetDomain(), prefix, limit)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
	batchCmd = &cobra.Command{
		Use:   "batch [key=value ...]",
		Short: "Atomically sets multiple key value pairs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs := make([]store.Pair, len(args))
			for i, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("invalid pair %q (expected key=value)", arg)
				}
				pairs[i] = store.Pair{Key: key, Value: []byte(value)}
			}
			if err := rpcStore.PutBatch(util.GetDomain(), pairs); err != nil {
				return err
			} else {
				fmt.Printf("batch of %d pair(s) set successfully\n", len(pairs))
			}
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints metadata about the store behind the shard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.GetStoreInfo()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

func init() {
	scanCmd.Flags().Int("limit", 0, util.WrapString("Maximum number of keys to return (0 returns all)"))
}
