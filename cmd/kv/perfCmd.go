package kv

import (
	"encoding/csv"
	"fmt"
	"github.com/cellardb/cellar/cmd/util"
	"github.com/cellardb/cellar/lib/store"
	"github.com/cellardb/cellar/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for cellar servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfBatchSize        = 16
	perfSkip             = make([]string, 0)
)

// perfResult bundles a benchmark result with the latency distribution
// sampled during the run
type perfResult struct {
	bench testing.BenchmarkResult
	hist  gometrics.Histogram
}

func init() {
	// add flags
	key := "skip"
	KeyValueCommands.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	KeyValueCommands.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	KeyValueCommands.PersistentFlags().Int(key, 1000, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	KeyValueCommands.PersistentFlags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "batch-size"
	KeyValueCommands.PersistentFlags().Int(key, 16, util.WrapString("How many pairs each batch write should carry"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfBatchSize = viper.GetInt("batch-size")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for cellar servers")

	domain := util.GetDomain()

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Domain: %s\n", domain)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]perfResult)

	setHist := newLatencyHistogram()
	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("set")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := rpcStore.Remove(domain, k)
				if err != nil {
					log.Printf("(set) - error removing key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				err := timed(setHist, func() error {
					return rpcStore.Put(domain, getKey(counter), []byte("test"))
				})
				if err != nil {
					log.Printf("(set) - error setting key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["set"] = perfResult{setResult, setHist}
	printResult("set", results["set"])

	setLargeHist := newLatencyHistogram()
	setLargeValueResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set-large") {
			return
		}

		// prepare large value
		largeValue := make([]byte, perfLargeValueSizeKB*1024)

		// prepare keys
		getKey, iter := getKeys("set-large")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := rpcStore.Remove(domain, k)
				if err != nil {
					log.Printf("(set-large) - error removing key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				err := timed(setLargeHist, func() error {
					return rpcStore.Put(domain, getKey(counter), largeValue)
				})
				if err != nil {
					log.Printf("(set-large) - error setting key: %v", err)
				}
				counter++
			}
		})

	})

	results["set-large"] = perfResult{setLargeValueResult, setLargeHist}
	printResult("set-large", results["set-large"])

	getHist := newLatencyHistogram()
	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("get")

		// set keys
		iter(func(k string) {
			err := rpcStore.Put(domain, k, []byte("test"))
			if err != nil {
				log.Printf("(get) - error setting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := rpcStore.Remove(domain, k)
				if err != nil {
					log.Printf("(get) - error removing key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				err := timed(getHist, func() error {
					_, _, err := rpcStore.Get(domain, getKey(counter))
					return err
				})
				if err != nil {
					log.Printf("(get) - error getting key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["get"] = perfResult{getResult, getHist}
	printResult("get", results["get"])

	deleteHist := newLatencyHistogram()
	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("delete")

		// set keys
		iter(func(k string) {
			err := rpcStore.Put(domain, k, []byte("test"))
			if err != nil {
				log.Printf("(delete) - error setting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := rpcStore.Remove(domain, k)
				if err != nil {
					log.Printf("(delete) - error removing key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				err := timed(deleteHist, func() error {
					return rpcStore.Remove(domain, getKey(counter))
				})
				if err != nil {
					log.Printf("(delete) - error removing key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["delete"] = perfResult{deleteResult, deleteHist}
	printResult("delete", results["delete"])

	scanHist := newLatencyHistogram()
	scanResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("scan") {
			return
		}

		// prepare keys
		_, iter := getKeys("scan")
		prefix := fmt.Sprintf("%s-scan", perfKeyPrefix)

		// set keys
		iter(func(k string) {
			err := rpcStore.Put(domain, k, []byte("test"))
			if err != nil {
				log.Printf("(scan) - error setting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := rpcStore.Remove(domain, k)
				if err != nil {
					log.Printf("(scan) - error removing key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				err := timed(scanHist, func() error {
					_, err := rpcStore.Scan(domain, prefix, 0)
					return err
				})
				if err != nil {
					log.Printf("(scan) - error scanning keys: %v\n", err)
				}
			}
		})
	})

	results["scan"] = perfResult{scanResult, scanHist}
	printResult("scan", results["scan"])

	batchHist := newLatencyHistogram()
	batchResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("batch") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("batch")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := rpcStore.Remove(domain, k)
				if err != nil {
					log.Printf("(batch) - error removing key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				pairs := make([]store.Pair, perfBatchSize)
				for i := range pairs {
					pairs[i] = store.Pair{Key: getKey(counter + i), Value: []byte("test")}
				}
				err := timed(batchHist, func() error {
					return rpcStore.PutBatch(domain, pairs)
				})
				if err != nil {
					log.Printf("(batch) - error writing batch: %v\n", err)
				}
				counter++
			}
		})
	})

	results["batch"] = perfResult{batchResult, batchHist}
	printResult("batch", results["batch"])

	mixedHist := newLatencyHistogram()
	mixedUsageResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("mixed")

		// set keys
		iter(func(k string) {
			err := rpcStore.Put(domain, k, []byte("test"))
			if err != nil {
				log.Printf("(mixed) - error setting key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				err := rpcStore.Remove(domain, k)
				if err != nil {
					log.Printf("(mixed) - error removing key: %v\n", err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			key := getKey(counter)
			for pb.Next() {
				err := timed(mixedHist, func() error {
					var err error
					switch counter % 4 {
					case 0: // set
						err = rpcStore.Put(domain, key, []byte("test"))
					case 1: // get
						_, _, err = rpcStore.Get(domain, key)
					case 2: // delete
						err = rpcStore.Remove(domain, key)
					case 3: // scan
						_, err = rpcStore.Scan(domain, perfKeyPrefix, 10)
					}
					return err
				})

				if err != nil {
					log.Printf("(mixed) - error performing operation (%d): %v\n", counter%4, err)
				}
				counter++
			}
		})
	})

	results["mixed"] = perfResult{mixedUsageResult, mixedHist}
	printResult("mixed", results["mixed"])

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// newLatencyHistogram creates a histogram with an exponentially decaying
// sample, safe for concurrent updates from the benchmark goroutines
func newLatencyHistogram() gometrics.Histogram {
	return gometrics.NewHistogram(gometrics.NewExpDecaySample(1028, 0.015))
}

// timed runs op and records its latency in the histogram
func timed(hist gometrics.Histogram, op func() error) error {
	start := time.Now()
	err := op()
	hist.Update(time.Since(start).Nanoseconds())
	return err
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	p := result.hist.Percentiles([]float64{0.5, 0.95, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(int64(p[0])), time.Duration(int64(p[1])), time.Duration(int64(p[2])))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P95", "P99", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Domain", "Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count", "BatchSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string
		var p []float64

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
			p = []float64{0, 0, 0}
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
			p = result.hist.Percentiles([]float64{0.5, 0.95, 0.99})
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			time.Duration(int64(p[0])).String(),
			time.Duration(int64(p[1])).String(),
			time.Duration(int64(p[2])).String(),
			skipped,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			util.GetDomain(),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfBatchSize),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
