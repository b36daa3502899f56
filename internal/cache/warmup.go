package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// warmupSem serializes warmup runs process-wide, independent of normal
// request traffic, so bulk precomputation cannot trigger upstream rate
// limiting or pile writes onto the backing store.
var warmupSem = semaphore.NewWeighted(1)

// ProcessFunc performs one masked external transformation.
type ProcessFunc func(ctx context.Context, text string, intensity int) (string, error)

// WarmupOptions tune a warmup run.
type WarmupOptions struct {
	Force     bool          // recompute variants that are already cached
	Delay     time.Duration // fixed pause between external calls
	BatchSize int           // capacity enforcement cadence, in stored items
}

// WarmupStats summarizes a warmup run.
type WarmupStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Warmup precomputes cache entries for each text × intensity pair using
// process, calling sequentially with a fixed inter-call delay. Individual
// failures are counted and skipped; the run continues. Capacity is enforced
// after every BatchSize stored items and once at the end.
func (s *Store) Warmup(ctx context.Context, texts []string, intensities []int, process ProcessFunc, opts WarmupOptions) (WarmupStats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}

	if err := warmupSem.Acquire(ctx, 1); err != nil {
		return WarmupStats{}, fmt.Errorf("acquire warmup slot: %w", err)
	}
	defer warmupSem.Release(1)

	stats := WarmupStats{Total: len(texts) * len(intensities)}
	sinceEnforce := 0

	for _, text := range texts {
		for _, intensity := range intensities {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			if !opts.Force {
				hit, err := s.Lookup(ctx, text, intensity)
				if err != nil {
					s.log.Warn("warmup lookup failed", "text", SanitizeLog(text), "error", err)
				}
				if hit != nil {
					stats.Skipped++
					continue
				}
			}

			result, err := process(ctx, text, intensity)
			if err != nil {
				s.log.Warn("warmup item failed",
					"text", SanitizeLog(text), "intensity", intensity, "error", err)
				stats.Errors++
				continue
			}
			if err := s.Put(ctx, text, intensity, result); err != nil {
				s.log.Warn("warmup store failed", "text", SanitizeLog(text), "error", err)
				stats.Errors++
				continue
			}
			stats.Processed++
			sinceEnforce++

			if sinceEnforce >= opts.BatchSize {
				if _, err := s.EnforceCapacity(ctx); err != nil {
					s.log.Warn("warmup capacity enforcement failed", "error", err)
				}
				sinceEnforce = 0
			}

			if opts.Delay > 0 {
				select {
				case <-ctx.Done():
					return stats, ctx.Err()
				case <-time.After(opts.Delay):
				}
			}
		}
	}

	if _, err := s.EnforceCapacity(ctx); err != nil {
		s.log.Warn("warmup capacity enforcement failed", "error", err)
	}
	return stats, nil
}
