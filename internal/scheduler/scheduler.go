package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/solgems/gemscan/internal/domain"
)

// Job describes one scheduled detection loop.
type Job struct {
	Name            string `yaml:"name"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	Description     string `yaml:"description"`
	Enabled         bool   `yaml:"enabled"`
}

// JobsConfig is the scheduler's YAML file.
type JobsConfig struct {
	Jobs []Job `yaml:"jobs"`
}

// LoadJobs reads the scheduler job configuration.
func LoadJobs(path string) (*JobsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs config: %w", err)
	}
	var cfg JobsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse jobs YAML: %w", err)
	}
	return &cfg, nil
}

// CycleRunner runs one detection cycle and returns its report.
type CycleRunner func(ctx context.Context) *domain.CycleReport

// Scheduler runs detection cycles on a fixed interval until the context is
// cancelled. Cycles never overlap; a slow cycle delays the next tick.
type Scheduler struct {
	interval time.Duration
	run      CycleRunner
}

// New creates a scheduler. Interval defaults to 10 minutes.
func New(interval time.Duration, run CycleRunner) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Scheduler{interval: interval, run: run}
}

// Run executes cycles until ctx is done. The first cycle starts immediately.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("scheduler starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report := s.run(ctx)
	if report == nil {
		log.Warn().Msg("cycle runner returned no report")
		return
	}
	log.Info().
		Str("cycle_id", report.CycleID).
		Int("finalists", len(report.Finalists)).
		Msg("scheduled cycle finished")
}
