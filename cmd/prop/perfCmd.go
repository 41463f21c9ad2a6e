package prop

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sysprop/cmd/util"
	libutil "github.com/ValentinKolb/sysprop/lib/util"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for property stores",
		Long:    "Runs read and write benchmarks against the property service (or the areas mapped in-process with --direct). The properties used are created below --prefix and deleted afterwards.",
		Args:    cobra.NoArgs,
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfPrefix     = "debug.perf"
	perfNumThreads = 10
	perfKeySpread  = 100
	perfRounds     = 3
	perfSkip       = make([]string, 0)

	// perfTimers records the latency of single operations per benchmark
	perfTimers = gometrics.NewRegistry()
)

// perfResult is the outcome of all rounds of one benchmark
type perfResult struct {
	rounds  []testing.BenchmarkResult
	nsPerOp libutil.Stats
	timer   gometrics.Timer
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different properties to use for the tests"))
	key = "rounds"
	perfTestCmd.Flags().Int(key, 3, util.WrapString("How often every benchmark is repeated"))
	key = "prefix"
	perfTestCmd.Flags().String(key, "debug.perf", util.WrapString("Name prefix of the properties used by the benchmarks"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfRounds = max(viper.GetInt("rounds"), 1)
	perfPrefix = strings.TrimSuffix(viper.GetString("prefix"), ".")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for property stores")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	if viper.GetBool("direct") {
		fmt.Printf("Direct: %s\n", viper.GetString("properties-dir"))
	} else {
		fmt.Println(util.GetClientConfig().String())
	}
	fmt.Printf("Threads: %d, Rounds: %d, Keys: %d\n", perfNumThreads, perfRounds, perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]perfResult)
	run := func(test string, setup func(iter func(func(string))), op func(key string, counter int) error) {
		if shouldSkip(test) {
			printResult(test, perfResult{})
			return
		}
		result := benchmark(test, setup, op)
		results[test] = result
		printResult(test, result)
	}

	run("get", setValues, func(key string, _ int) error {
		_, _, err := propStore.Get(key)
		return err
	})

	run("get-missing", nil, func(key string, _ int) error {
		_, _, err := propStore.Get(key)
		return err
	})

	run("set", setValues, func(key string, counter int) error {
		return propStore.Set(key, strconv.Itoa(counter))
	})

	run("add-delete", nil, func(key string, counter int) error {
		if counter%2 == 0 {
			return propStore.Set(key, "test")
		}
		_, err := propStore.Delete(key)
		return err
	})

	run("serial", nil, func(_ string, _ int) error {
		_, err := propStore.Serial()
		return err
	})

	run("list", setValues, func(_ string, _ int) error {
		_, err := propStore.List()
		return err
	})

	run("mixed", setValues, func(key string, counter int) error {
		var err error
		switch counter % 4 {
		case 0, 2: // get
			_, _, err = propStore.Get(key)
		case 1: // update
			err = propStore.Set(key, "mixed")
		case 3: // serial
			_, err = propStore.Serial()
		}
		return err
	})

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs op perfRounds times in parallel over the keys of test
func benchmark(test string, setup func(iter func(func(string))), op func(key string, counter int) error) perfResult {
	getKey, iter := getKeys(test)
	timer := perfTimers.GetOrRegister(test, gometrics.NewTimer).(gometrics.Timer)

	if setup != nil {
		setup(iter)
	}

	// cleanup
	defer iter(func(k string) {
		if _, err := propStore.Delete(k); err != nil {
			log.Printf("(%s) - error deleting key: %v\n", test, err)
		}
	})

	result := perfResult{timer: timer}
	var nsPerOp []float64
	for round := 0; round < perfRounds; round++ {
		r := testing.Benchmark(func(b *testing.B) {
			b.SetParallelism(perfNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					start := time.Now()
					if err := op(getKey(counter), counter); err != nil {
						log.Printf("(%s) - error: %v\n", test, err)
					}
					timer.UpdateSince(start)
					counter++
				}
			})
		})
		result.rounds = append(result.rounds, r)
		nsPerOp = append(nsPerOp, float64(r.NsPerOp()))
	}
	result.nsPerOp = libutil.NewStats(nsPerOp)
	return result
}

// setValues creates all properties of a benchmark
func setValues(iter func(func(string))) {
	iter(func(k string) {
		if err := propStore.Set(k, "test"); err != nil {
			log.Printf("error setting key %s: %v\n", k, err)
		}
	})
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s.%s.%d", perfPrefix, prefix, i)
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
	if result.nsPerOp.Mean == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(result.nsPerOp.Mean, 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p := result.timer.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (±%.0f)\t%.0f ops/sec\tp50 %s\tp99 %s\n",
		test, nsPerOp, result.nsPerOp.StdDeviation, opsPerSec,
		time.Duration(p[0]), time.Duration(p[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()
	target := "service"
	if viper.GetBool("direct") {
		target = "direct"
	}

	// Write header
	header := []string{
		"Test", "Round", "NsPerOp", "DurationPerOp", "OpsPerSec",
		"P50Ns", "P99Ns", "MinMaxRatio",
		"Target", "Endpoints", "Serializer", "Transport",
		"Threads", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results, one row per round
	for test, result := range results {
		p := result.timer.Percentiles([]float64{0.5, 0.99})
		for round, r := range result.rounds {
			nsPerOp := math.Max(float64(r.NsPerOp()), 1)
			opsPerSec := 1.0 / (nsPerOp / 1e9)

			row := []string{
				test,
				strconv.Itoa(round),
				fmt.Sprintf("%.0f", nsPerOp),
				time.Duration(nsPerOp).String(),
				fmt.Sprintf("%.0f", opsPerSec),
				fmt.Sprintf("%.0f", p[0]),
				fmt.Sprintf("%.0f", p[1]),
				fmt.Sprintf("%.3f", result.nsPerOp.MinMaxRatio),
				target,
				strings.Join(config.Endpoints, ";"),
				viper.GetString("serializer"),
				viper.GetString("transport"),
				strconv.Itoa(perfNumThreads),
				strconv.Itoa(perfKeySpread),
			}

			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write row for test %s: %v", test, err)
			}
		}
	}

	return nil
}
