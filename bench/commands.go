package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cosmos/treapx"
)

type logFlags struct {
	logType  string
	logFile  string
	logLevel string
}

func (f *logFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.logType, "log-type", "console", "Log format (console|json).")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Write logs to this file instead of stderr.")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level.")
}

func (f *logFlags) logger() (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(f.logLevel)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return NewLogger(f.logType, f.logFile, level)
}

func GenCommand() *cobra.Command {
	var (
		logs             logFlags
		profile          string
		ops              int
		seed             uint64
		online           bool
		versionedQueries bool
		text             bool
	)
	cmd := &cobra.Command{
		Use:   "gen [out-dir]",
		Short: "Generate a random op log.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closer, err := logs.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			gen, err := GeneratorProfile(profile, ops)
			if err != nil {
				return err
			}
			gen.Seed = seed
			if cmd.Flags().Changed("online") {
				gen.Online = online
			}
			if cmd.Flags().Changed("versioned-queries") {
				gen.VersionedQueries = versionedQueries
			}
			gen.Text = text

			_, err = gen.Generate(args[0], log)
			return err
		},
	}
	logs.register(cmd)
	cmd.Flags().StringVar(&profile, "profile", "small", "Generator profile (small|branching|query-heavy|reverse-heavy).")
	cmd.Flags().IntVar(&ops, "ops", 100_000, "Number of ops to generate.")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Generator seed.")
	cmd.Flags().BoolVar(&online, "online", false, "XOR op arguments with the last answer.")
	cmd.Flags().BoolVar(&versionedQueries, "versioned-queries", false, "Range sums publish a version.")
	cmd.Flags().BoolVar(&text, "text", false, "Also write the log as text.")
	return cmd
}

func RunCommand() *cobra.Command {
	var (
		logs         logFlags
		params       RunParams
		options      string
		answersFile  string
		hashLogFile  string
		metricsAddr  string
		verifyLatest bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay an op log against a version store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.OpsDir == "" {
				return fmt.Errorf("ops-dir is required")
			}
			log, closer, err := logs.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			params.Options, err = ParseOptions(options)
			if err != nil {
				return err
			}
			params.Options.Logger = NewSlogLogger(log)
			params.Log = log

			reg := prometheus.NewRegistry()
			params.Options.Metrics = treapx.NewMetrics(reg, nil)
			if metricsAddr != "" {
				stop := serveMetrics(log, metricsAddr, reg)
				defer stop()
			}

			if answersFile != "" {
				file, err := os.Create(answersFile)
				if err != nil {
					return err
				}
				defer file.Close()
				params.Answers = file
			}
			if hashLogFile != "" {
				file, err := os.Create(hashLogFile)
				if err != nil {
					return err
				}
				defer file.Close()
				params.HashLog = file
			}

			res, err := Run(cmd.Context(), params)
			if err != nil {
				return err
			}
			if verifyLatest {
				if err := res.Store.Verify(res.Store.Latest()); err != nil {
					return err
				}
				log.Info().Uint32("version", uint32(res.Store.Latest())).Msg("verified latest version")
			}
			return nil
		},
	}
	logs.register(cmd)
	cmd.Flags().StringVar(&params.OpsDir, "ops-dir", "", "Directory containing the op log.")
	cmd.Flags().BoolVar(&params.Text, "text", false, "Read ops.txt instead of ops.bin.")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "Number of ops to apply. If this is empty or 0, the whole log is applied.")
	cmd.Flags().StringVar(&options, "options", "", "Store options as YAML or JSON, e.g. '{arena: true}'.")
	cmd.Flags().StringVar(&answersFile, "answers-file", "", "Write one answer per line to this file.")
	cmd.Flags().StringVar(&hashLogFile, "hash-log", "", "Write periodic answer hashes to this file.")
	cmd.Flags().IntVar(&params.HashEvery, "hash-every", 10_000, "Ops between hash log lines.")
	cmd.Flags().IntVar(&params.CheckEvery, "check-every", 0, "Re-check every Nth answer concurrently; 0 disables.")
	cmd.Flags().IntVar(&params.CheckWorkers, "check-workers", 0, "Goroutines for concurrent checks; 0 uses GOMAXPROCS.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address during the run.")
	cmd.Flags().BoolVar(&verifyLatest, "verify", false, "Check tree invariants of the latest version after the run.")
	return cmd
}

func serveMetrics(log zerolog.Logger, addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func DotCommand() *cobra.Command {
	var (
		logs     logFlags
		opsDir   string
		text     bool
		limit    int
		versions []uint
		out      string
	)
	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Replay a prefix of an op log and render versions as a DOT graph.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opsDir == "" {
				return fmt.Errorf("ops-dir is required")
			}
			log, closer, err := logs.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			res, err := Run(cmd.Context(), RunParams{OpsDir: opsDir, Text: text, Limit: limit, Log: log})
			if err != nil {
				return err
			}

			ids := make([]treapx.VersionID, 0, len(versions))
			for _, v := range versions {
				ids = append(ids, treapx.VersionID(v))
			}
			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return res.Store.RenderDot(w, ids...)
		},
	}
	logs.register(cmd)
	cmd.Flags().StringVar(&opsDir, "ops-dir", "", "Directory containing the op log.")
	cmd.Flags().BoolVar(&text, "text", false, "Read ops.txt instead of ops.bin.")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of ops to replay.")
	cmd.Flags().UintSliceVar(&versions, "versions", nil, "Versions to render; defaults to the latest.")
	cmd.Flags().StringVar(&out, "out", "", "Output file; defaults to stdout.")
	return cmd
}

func BenchAllCommand() *cobra.Command {
	var (
		logs   logFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "bench-all [plan-file]",
		Short: "Execute every run of a YAML or JSON plan.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closer, err := logs.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			planFile := args[0]
			plan, err := LoadPlan(planFile)
			if err != nil {
				return err
			}

			resultDir := filepath.Join(filepath.Dir(planFile), time.Now().Format("20060102_150405"))
			resultDir, err = filepath.Abs(resultDir)
			if err != nil {
				return fmt.Errorf("error getting absolute path of result dir: %w", err)
			}
			log.Info().Msgf("writing results to %s", resultDir)

			failed, err := plan.RunAll(log, resultDir, dryRun)
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d runs failed", failed, len(plan.Runs))
			}
			return nil
		},
	}
	logs.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "If true, the plan will be printed but not executed.")
	return cmd
}
