package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"flowgate/internal/cache"
)

var (
	warmupLevels string
	warmupForce  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the result cache",
}

var cacheWarmupCmd = &cobra.Command{
	Use:   "warmup [file]",
	Short: "Precompute cache entries for a list of texts",
	Long: "Warmup reads one text per line from the file (or stdin) and runs each " +
		"through the full pipeline at every requested intensity, pausing between " +
		"calls. Already-cached variants are skipped unless --force is given.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		texts, err := readLines(args)
		if err != nil {
			return err
		}
		levels, err := parseLevels(warmupLevels)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		// Warmup runs can outlive the sweep interval; collect expired
		// entries in the background while it works.
		a.cache.StartSweeper(cmd.Context(), a.cfg.Cache.SweepInterval)

		stats, err := a.cache.Warmup(cmd.Context(), texts, levels, a.processor.WarmupFunc(), cache.WarmupOptions{
			Force:     warmupForce,
			Delay:     a.cfg.Warmup.Delay,
			BatchSize: a.cfg.Warmup.BatchSize,
		})
		if err != nil {
			return fmt.Errorf("running warmup: %w", err)
		}
		return printJSON(stats)
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete cache entries past their TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		deleted, err := a.cache.Sweep(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweeping cache: %w", err)
		}
		return printJSON(map[string]int{"deleted": deleted})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		count, err := a.cache.Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}
		return printJSON(map[string]any{
			"entries":     count,
			"max_entries": a.cfg.Cache.MaxEntries,
			"ttl":         a.cfg.Cache.TTL.String(),
		})
	},
}

func init() {
	cacheWarmupCmd.Flags().StringVar(&warmupLevels, "levels", "30", "comma-separated intensities to precompute")
	cacheWarmupCmd.Flags().BoolVar(&warmupForce, "force", false, "recompute variants that are already cached")

	cacheCmd.AddCommand(cacheWarmupCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}

// readLines loads non-empty lines from the named file, or stdin with no
// argument.
func readLines(args []string) ([]string, error) {
	in := os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("opening input file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no input texts")
	}
	return lines, nil
}

func parseLevels(s string) ([]int, error) {
	var levels []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 100 {
			return nil, fmt.Errorf("invalid intensity %q: must be an integer in [0,100]", part)
		}
		levels = append(levels, n)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("no intensities given")
	}
	return levels, nil
}
