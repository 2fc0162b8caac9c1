package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/solgems/gemscan/internal/config"
	"github.com/solgems/gemscan/internal/domain"
	"github.com/solgems/gemscan/internal/scheduler"
)

// loopCmd runs detection cycles continuously with the monitoring server up.
var loopCmd = &cobra.Command{
	Use:   "loop",
	Short: "Run detection cycles continuously",
	Long: `Run the detector as a long-lived process: cycles on a fixed interval,
live-launch stream kept open between cycles, monitoring server exposed.

Examples:
  gemscan loop
  gemscan loop --interval 5m --output out/gemscan
  gemscan loop --jobs config/jobs.yaml`,
	RunE: runLoop,
}

var (
	loopInterval  time.Duration
	loopOutputDir string
	loopJobsFile  string
)

func init() {
	rootCmd.AddCommand(loopCmd)
	loopCmd.Flags().DurationVar(&loopInterval, "interval", 10*time.Minute, "Delay between cycle starts")
	loopCmd.Flags().StringVar(&loopOutputDir, "output", "out/gemscan", "Output directory for cycle artifacts")
	loopCmd.Flags().StringVar(&loopJobsFile, "jobs", "", "Optional scheduler jobs YAML; overrides --interval")
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	interval := loopInterval
	if loopJobsFile != "" {
		jobs, err := scheduler.LoadJobs(loopJobsFile)
		if err != nil {
			return err
		}
		for _, job := range jobs.Jobs {
			if job.Enabled && job.IntervalMinutes > 0 {
				interval = time.Duration(job.IntervalMinutes) * time.Minute
				log.Info().Str("job", job.Name).Dur("interval", interval).Msg("using scheduled job interval")
				break
			}
		}
	}

	application, err := buildApp(cfg, loopOutputDir)
	if err != nil {
		return err
	}
	defer application.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info().Str("signal", sig.String()).Msg("shutdown requested")
		cancel()
	}()

	go func() {
		if err := application.server.ListenAndServe(cfg.Monitor.ListenAddr); err != nil {
			log.Error().Err(err).Msg("monitoring server stopped")
		}
	}()

	application.stream.Start(ctx)

	sched := scheduler.New(interval, func(ctx context.Context) *domain.CycleReport {
		return application.runCycle(ctx)
	})
	sched.Run(ctx)
	return nil
}
