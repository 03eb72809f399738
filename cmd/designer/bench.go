package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamtc007/data-designer-sub001/pkg/cli"
)

var benchFlags struct {
	n           int
	concurrency int
	attrs       string
	lookups     []string
	grammar     string
	format      string
}

var benchCmd = &cobra.Command{
	Use:   "bench <expression>",
	Short: "Measure parse and evaluation throughput",
	Long: `Bench parses and evaluates one expression repeatedly in-process and
reports throughput and latency percentiles for both phases. The
expression is checked once up front; a benchmark never runs on an
expression that does not parse and evaluate.

Examples:
  designer bench 'trade.notional * risk.weight' --attrs trade.yaml
  designer bench -n 500000 --concurrency 8 'SUM(1, 2, 3) * 4'`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntVarP(&benchFlags.n, "iterations", "n", 100000, "iterations per phase")
	benchCmd.Flags().IntVar(&benchFlags.concurrency, "concurrency", 1, "concurrent workers")
	benchCmd.Flags().StringVarP(&benchFlags.attrs, "attrs", "a", "", "YAML file of attribute values")
	benchCmd.Flags().StringSliceVar(&benchFlags.lookups, "lookups", nil, "lookup table files, in addition to configured ones")
	benchCmd.Flags().StringVar(&benchFlags.grammar, "grammar", "", "grammar definition file (default: configured grammar)")
	benchCmd.Flags().StringVar(&benchFlags.format, "format", "text", "output format (text, json)")
}

// phaseStats summarizes one benchmark phase.
type phaseStats struct {
	Phase      string  `json:"phase"`
	Iterations int     `json:"iterations"`
	Failed     int     `json:"failed,omitempty"`
	Elapsed    string  `json:"elapsed"`
	Throughput float64 `json:"ops_per_sec"`
	Min        string  `json:"min"`
	P50        string  `json:"p50"`
	P95        string  `json:"p95"`
	P99        string  `json:"p99"`
	Max        string  `json:"max"`
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchFlags.n <= 0 {
		return cli.NewConfigError("iterations", "must be positive")
	}
	if benchFlags.concurrency <= 0 {
		return cli.NewConfigError("concurrency", "must be positive")
	}
	text := args[0]

	cfg, err := loadDesignerConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	eng, err := buildEngine(cfg, logger, benchFlags.grammar, benchFlags.lookups)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer eng.Close()

	attrs, err := loadAttributes(benchFlags.attrs)
	if err != nil {
		return err
	}
	names := attributeNames(attrs)

	ctx, stop := cli.ShutdownContext(cmd.Context())
	defer stop()

	// Check the expression once before burning iterations on it.
	node, err := eng.ParseRule(text)
	if err != nil {
		printReports(eng.Explain(text, err, names...))
		return cli.NewCommandError("bench", fmt.Errorf("expression does not parse"))
	}
	if _, err := eng.EvaluateRule(ctx, node, attrs); err != nil {
		printReports(eng.Explain(text, err, names...))
		return cli.NewCommandError("bench", fmt.Errorf("expression does not evaluate"))
	}

	parseStats := runPhase(ctx, "parse", func() error {
		_, err := eng.ParseRule(text)
		return err
	})
	evalStats := runPhase(ctx, "evaluate", func() error {
		_, err := eng.EvaluateRule(ctx, node, attrs)
		return err
	})

	if benchFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Expression  string       `json:"expression"`
			Concurrency int          `json:"concurrency"`
			Phases      []phaseStats `json:"phases"`
		}{text, benchFlags.concurrency, []phaseStats{parseStats, evalStats}})
	}

	version, _ := eng.ActiveVersion()
	fmt.Println("Benchmark results")
	fmt.Println("=================")
	fmt.Printf("expression:  %s\n", text)
	fmt.Printf("grammar:     version %d\n", version)
	fmt.Printf("concurrency: %d\n", benchFlags.concurrency)
	printPhase(parseStats)
	printPhase(evalStats)

	if ctx.Err() != nil {
		return cli.NewCommandError("bench", fmt.Errorf("interrupted"))
	}
	return nil
}

// runPhase measures one operation n times across the configured workers.
// Cancellation stops the phase early; the stats cover the iterations that
// actually ran.
func runPhase(ctx context.Context, label string, op func() error) phaseStats {
	n := benchFlags.n
	workers := benchFlags.concurrency

	reporter := cli.NewProgressReporter(os.Stderr, label)
	reporter.Start(int64(n))
	step := n / 100
	if step == 0 {
		step = 1
	}

	var (
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, n)
		failed    atomic.Int64
		done      atomic.Int64
		wg        sync.WaitGroup
	)

	start := time.Now()
	for w := 0; w < workers; w++ {
		share := n / workers
		if w < n%workers {
			share++
		}
		wg.Add(1)
		go func(share int) {
			defer wg.Done()
			local := make([]time.Duration, 0, share)
			for i := 0; i < share; i++ {
				if ctx.Err() != nil {
					break
				}
				t0 := time.Now()
				err := op()
				local = append(local, time.Since(t0))
				if err != nil {
					failed.Add(1)
				}
				if total := done.Add(1); total%int64(step) == 0 {
					reporter.Update(total)
				}
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(share)
	}
	wg.Wait()
	elapsed := time.Since(start)
	reporter.Finish()

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	stats := phaseStats{
		Phase:      label,
		Iterations: len(latencies),
		Failed:     int(failed.Load()),
		Elapsed:    elapsed.Round(time.Millisecond).String(),
	}
	if len(latencies) == 0 {
		return stats
	}
	stats.Throughput = float64(len(latencies)) / elapsed.Seconds()
	stats.Min = latencies[0].String()
	stats.P50 = percentile(latencies, 0.50).String()
	stats.P95 = percentile(latencies, 0.95).String()
	stats.P99 = percentile(latencies, 0.99).String()
	stats.Max = latencies[len(latencies)-1].String()
	return stats
}

// percentile reads the p-th percentile from sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func printPhase(s phaseStats) {
	fmt.Printf("\n%s (%s iterations)\n", s.Phase, humanize.Comma(int64(s.Iterations)))
	if s.Iterations == 0 {
		fmt.Println("  no iterations completed")
		return
	}
	if s.Failed > 0 {
		fmt.Printf("  failed:     %s\n", humanize.Comma(int64(s.Failed)))
	}
	fmt.Printf("  elapsed:    %s\n", s.Elapsed)
	fmt.Printf("  throughput: %s ops/s\n", humanize.Comma(int64(s.Throughput)))
	fmt.Printf("  latency:    min %s / p50 %s / p95 %s / p99 %s / max %s\n",
		s.Min, s.P50, s.P95, s.P99, s.Max)
}
