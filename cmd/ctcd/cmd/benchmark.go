package cmd

import (
	"fmt"

	"github.com/soniq-ml/ctcd/internal/benchmark"
	"github.com/spf13/cobra"
)

// benchmarkCmd represents the benchmark command.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Measure decode throughput on synthetic workloads",
	Long: `Run greedy decoding over synthetic score batches and report timing
and memory statistics per workload.

Examples:
  ctcd benchmark
  ctcd benchmark --iterations 100
  ctcd benchmark --batch 16 --time 500 --vocab 256`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		iterations, _ := cmd.Flags().GetInt("iterations")
		if iterations < 1 {
			return fmt.Errorf("iterations must be >= 1, got %d", iterations)
		}

		workloads := benchmark.DefaultWorkloads()
		if cmd.Flags().Changed("batch") || cmd.Flags().Changed("time") || cmd.Flags().Changed("vocab") {
			batch, _ := cmd.Flags().GetInt("batch")
			timeExtent, _ := cmd.Flags().GetInt("time")
			vocab, _ := cmd.Flags().GetInt("vocab")
			blankIndex, _ := cmd.Flags().GetInt("blank-index")
			workers, _ := cmd.Flags().GetInt("workers")
			workloads = []benchmark.Workload{{
				Batch:      batch,
				TimeExtent: timeExtent,
				Vocab:      vocab,
				BlankIndex: blankIndex,
				Workers:    workers,
				Seed:       1,
			}}
		}

		suite := benchmark.NewSuite()
		if err := benchmark.AddDecodeCases(suite, workloads); err != nil {
			return err
		}

		for _, result := range suite.RunAll(iterations) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.String())
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().Int("iterations", 10, "iterations per workload")
	benchmarkCmd.Flags().Int("batch", 8, "batch size for a custom workload")
	benchmarkCmd.Flags().Int("time", 500, "time extent for a custom workload")
	benchmarkCmd.Flags().Int("vocab", 128, "vocabulary size for a custom workload")
	benchmarkCmd.Flags().Int("blank-index", 0, "blank index for a custom workload")
	benchmarkCmd.Flags().Int("workers", 0, "decode workers (0 = number of CPUs)")
}
