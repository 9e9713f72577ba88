package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"rtsched/internal/logging"
	"rtsched/internal/sched"
	"rtsched/internal/sim"
	"rtsched/internal/tracing"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	policy    string
	cpus      int
}

func (g *globalFlags) load(cmd *cobra.Command) (sched.Config, *slog.Logger, error) {
	cfg, err := sched.Load(g.config)
	if err != nil {
		return cfg, nil, err
	}
	if cmd.Flags().Changed("policy") {
		cfg.Policy = g.policy
	}
	if cmd.Flags().Changed("cpus") {
		cfg.CPUs = g.cpus
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	level, format := cfg.Log.Level, cfg.Log.Format
	if cmd.Flags().Changed("log-level") {
		level = g.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		format = g.logFormat
	}
	return cfg, logging.NewLogger(logging.ParseLevel(level), format), nil
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:          "rtsched",
		Short:        "Multiprocessor real-time scheduling engine",
		Version:      version,
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "config.yml", "configuration file")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&g.policy, "policy", sched.PolicyGEDF, "scheduling policy (gedf, gfp, fpus, pfp)")
	pf.IntVar(&g.cpus, "cpus", 4, "number of CPUs")

	root.AddCommand(runCmd(g), analyzeCmd(g))
	return root
}

func runCmd(g *globalFlags) *cobra.Command {
	var (
		ticks    int64
		csvPath  string
		realtime bool
		trace    string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate the configured workload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load(cmd)
			if err != nil {
				return err
			}
			if trace != "" {
				shutdown, err := tracing.Init("rtsched", version, trace)
				if err != nil {
					return fmt.Errorf("init tracing: %w", err)
				}
				defer func() {
					if err := shutdown(context.Background()); err != nil {
						log.Warn("tracing shutdown", "err", err)
					}
				}()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			s, err := sim.New(cfg, sched.NopMover, log)
			if err != nil {
				return err
			}
			events := sim.NewEventLog(log)
			if csvPath != "" {
				if err := events.EnableCSV(csvPath); err != nil {
					return err
				}
			}
			defer events.Close()

			consumeCtx, cancel := context.WithCancel(context.Background())
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				events.Consume(consumeCtx, s.Scheduler().Events())
			}()

			if err := s.Submit(ctx); err != nil {
				cancel()
				wg.Wait()
				return err
			}
			if realtime {
				err = s.Run(ctx, time.Duration(cfg.TickMS)*time.Millisecond, ticks)
			} else {
				err = s.RunSteps(ctx, ticks)
			}
			cancel()
			wg.Wait()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "policy=%s cpus=%d time=%d dropped_events=%d\n",
				cfg.Policy, cfg.CPUs, s.Now(), s.Scheduler().Dropped())
			for _, spec := range cfg.Tasks {
				st := s.Stats(spec.ID)
				fmt.Fprintf(out, "task %4d: released=%d completed=%d missed=%d overruns=%d\n",
					spec.ID, st.Released, st.Completed, st.Missed, st.Overruns)
			}
			fmt.Fprintf(out, "preemptions=%d migrations=%d\n",
				events.Count(sched.EventPreempt), events.Count(sched.EventMigrate))
			return nil
		},
	}
	cmd.Flags().Int64Var(&ticks, "ticks", 100, "time units to simulate")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write scheduler events to this CSV file")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "advance one time unit per tick_ms")
	cmd.Flags().StringVar(&trace, "trace", "", "write migration spans to this file")
	return cmd
}

func analyzeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Partition the configured workload with response-time analysis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load(cmd)
			if err != nil {
				return err
			}
			a := sched.NewAnalyzer(cfg.CPUs, cfg.Overhead, log)
			out := cmd.OutOrStdout()
			load := make([]float64, cfg.CPUs)
			for _, spec := range cfg.Tasks {
				p := spec.Params()
				if err := p.Validate(true); err != nil {
					return fmt.Errorf("task %d: %w", spec.ID, err)
				}
				cpu, ok := a.Partition(spec.ID, p)
				if !ok {
					fmt.Fprintf(out, "task %4d: best-effort\n", spec.ID)
					continue
				}
				load[cpu] += p.Utilization()
				fmt.Fprintf(out, "task %4d: cpu %d utilization %.3f\n", spec.ID, cpu, p.Utilization())
			}
			for cpu, u := range load {
				fmt.Fprintf(out, "cpu %d: utilization %.3f\n", cpu, u)
			}
			for _, spec := range cfg.Tasks {
				if r, err := a.ResponseTime(spec.ID); err == nil {
					fmt.Fprintf(out, "task %4d: response time %d (deadline %d)\n", spec.ID, r, spec.Params().D)
				}
			}
			return nil
		},
	}
}
