package events

import (
	"fmt"
	"github.com/spf13/cobra"
	"strconv"
	"time"
)

var (
	recordCmd = &cobra.Command{
		Use:   "record [payload ...]",
		Short: "Records one or more events, printing the assigned keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				key, err := recorder.Record([]byte(args[0]))
				if err != nil {
					return err
				}
				fmt.Println(key)
				return nil
			}

			payloads := make([][]byte, len(args))
			for i, arg := range args {
				payloads[i] = []byte(arg)
			}
			keys, err := recorder.RecordBatch(payloads)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists event keys in recording order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, _ := cmd.Flags().GetInt64("since")
			until, _ := cmd.Flags().GetInt64("until")
			keys, err := recorder.List(since, until)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
	fetchCmd = &cobra.Command{
		Use:   "fetch [key]",
		Short: "Reads the payload of a single event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, found, err := recorder.Fetch(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("event %s not found", args[0])
			}
			fmt.Println(string(payload))
			return nil
		},
	}
	expireCmd = &cobra.Command{
		Use:   "expire [cutoff]",
		Short: "Removes all events older than the cutoff (a unix timestamp or an age like 24h)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := parseCutoff(args[0])
			if err != nil {
				return err
			}
			if err := recorder.Expire(cutoff); err != nil {
				return err
			}
			fmt.Println("expired successfully")
			return nil
		},
	}
)

func init() {
	listCmd.Flags().Int64("since", 0, "Lowest unix timestamp to include")
	listCmd.Flags().Int64("until", 0, "Upper unix timestamp bound, exclusive (0 means no bound)")
}

// parseCutoff accepts either an absolute unix timestamp or a duration
// relative to now (e.g. "24h" expires everything older than a day)
func parseCutoff(arg string) (int64, error) {
	if ts, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return ts, nil
	}
	age, err := time.ParseDuration(arg)
	if err != nil {
		return 0, fmt.Errorf("cutoff must be a unix timestamp or a duration: %v", err)
	}
	return time.Now().Add(-age).Unix(), nil
}
