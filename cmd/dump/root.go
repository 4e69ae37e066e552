package dump

import (
	"bufio"
	"encoding/json"
	"fmt"
	"github.com/cellardb/cellar/cmd/util"
	"github.com/cellardb/cellar/lib/engine"
	"github.com/cellardb/cellar/lib/engine/badgerdb"
	"github.com/cellardb/cellar/lib/store/pstore"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
	"io"
	"os"
	"strings"
)

// record is one JSON line of the export. Values are base64 encoded by
// the JSON encoder, keys and domains are plain strings.
type record struct {
	Domain string `json:"domain"`
	Key    string `json:"key"`
	Value  []byte `json:"value"`
}

var DumpCmd = &cobra.Command{
	Use:   "dump [path]",
	Short: "Exports the contents of a store as JSON lines",
	Long: `Exports every key-value pair of a store as one JSON object per line.
The store is opened read-only directly from its data directory, the
server must not have it open at the same time. Values are base64
encoded. The implicit 'default' domain is part of the stock domain
list and is exported too.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	DumpCmd.Flags().String("domains", strings.Join(append([]string{"default"}, pstore.DefaultDomains...), ","), util.WrapString("Comma-separated list of domains the store was created with"))
	DumpCmd.Flags().String("domain", "", util.WrapString("Export only this domain"))
	DumpCmd.Flags().StringP("output", "o", "", util.WrapString("Output file path (default: stdout)"))
	DumpCmd.Flags().BoolP("compress", "z", false, util.WrapString("Compress output with gzip"))
}

func runDump(cmd *cobra.Command, args []string) error {
	path := args[0]

	domainList, _ := cmd.Flags().GetString("domains")
	only, _ := cmd.Flags().GetString("domain")
	outputPath, _ := cmd.Flags().GetString("output")
	compress, _ := cmd.Flags().GetBool("compress")

	// Select the partitions to export
	var descriptors []engine.PartitionDescriptor
	for _, domain := range strings.Split(domainList, ",") {
		domain = strings.TrimSpace(domain)
		if domain == "" || (only != "" && domain != only) {
			continue
		}
		descriptors = append(descriptors, engine.PartitionDescriptor{Name: domain})
	}
	if len(descriptors) == 0 {
		if only == "" {
			return fmt.Errorf("no domains to export")
		}
		// A domain outside the stock list can still be exported directly
		descriptors = []engine.PartitionDescriptor{{Name: only}}
	}

	// Open the engine read-only, a dump must never mutate the store
	opts := engine.DefaultOpenOptions()
	opts.Partitions = descriptors
	opts.ReadOnly = true

	eng, err := badgerdb.New(path, opts)
	if err != nil {
		return fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	defer eng.Close()

	// Set up the output writer
	var out io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		bw := bufio.NewWriter(f)
		defer bw.Flush()
		out = bw
	}

	// Apply compression if requested
	if compress {
		gz := gzip.NewWriter(out)
		defer gz.Close()
		out = gz
	}

	encoder := json.NewEncoder(out)
	total := 0

	for _, p := range eng.Partitions() {
		count, err := dumpPartition(eng, p, encoder)
		if err != nil {
			return fmt.Errorf("failed to export domain %s: %w", p.Name(), err)
		}
		total += count
	}

	// Print summary (only if not outputting to stdout)
	if outputPath != "" {
		fmt.Fprintf(os.Stderr, "exported %d record(s) from %d domain(s) to %s\n", total, len(descriptors), outputPath)
	}

	return nil
}

// dumpPartition writes every pair of one partition to the encoder
func dumpPartition(eng engine.KVEngine, p engine.Partition, encoder *json.Encoder) (int, error) {
	it, err := eng.NewIterator(p, engine.ReadOptions{})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	count := 0
	for it.SeekToFirst(); it.Valid(); it.Next() {
		value, err := it.Value()
		if err != nil {
			return count, err
		}
		if err := encoder.Encode(record{Domain: p.Name(), Key: it.Key(), Value: value}); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}
