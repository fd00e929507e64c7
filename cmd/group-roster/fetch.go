package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/group-roster-client/pkg/checkpoint"
	"github.com/Sternrassler/group-roster-client/pkg/client"
	"github.com/Sternrassler/group-roster-client/pkg/logging"
	"github.com/Sternrassler/group-roster-client/pkg/metrics"
	"github.com/Sternrassler/group-roster-client/pkg/roster"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	opts := defaultOptions()

	cmd := &cobra.Command{
		Use:   "fetch <groupID>",
		Short: "Fetch all members of a group and print them as JSON",
		Example: `  # Print the roster of group 4199740
  group-roster fetch 4199740 > members.json

  # Resumable run with a retry budget and metrics
  group-roster fetch 4199740 --redis localhost:6379 --max-attempts 20 --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.apiURL, "api-url", opts.apiURL, "groups API base URL")
	flags.StringVar(&opts.userAgent, "user-agent", opts.userAgent, "User-Agent header sent with every request")
	flags.StringVar(&opts.redisAddr, "redis", opts.redisAddr, "Redis address or URL for resumable checkpoints (empty disables)")
	flags.DurationVar(&opts.checkpointTTL, "checkpoint-ttl", opts.checkpointTTL, "how long an unfinished run stays resumable")
	flags.DurationVar(&opts.pageDelay, "page-delay", opts.pageDelay, "pause between successful pages")
	flags.DurationVar(&opts.retryDelay, "retry-delay", opts.retryDelay, "wait before repeating a failed or rate limited page")
	flags.IntVar(&opts.maxAttempts, "max-attempts", opts.maxAttempts, "consecutive attempts per page before giving up (0 = unlimited)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", opts.metricsAddr, "serve Prometheus metrics on this address while running")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.pretty, "pretty", opts.pretty, "human-readable console logs instead of JSON")

	return cmd
}

func runFetch(cmd *cobra.Command, opts *options, arg string) error {
	groupID, err := parseGroupID(arg)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	logging.Setup(logging.Config{
		Level:  level,
		Pretty: opts.pretty,
		Output: cmd.ErrOrStderr(),
	})
	logger := logging.NewLogger(logging.ComponentCLI).With().Str("group_id", groupID).Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	groupsClient, err := client.New(opts.clientConfig())
	if err != nil {
		return fmt.Errorf("create groups client: %w", err)
	}

	var collectorOpts []roster.Option
	if opts.redisAddr != "" {
		store, closeStore := openCheckpoints(ctx, opts, logger)
		if store != nil {
			defer closeStore()
			collectorOpts = append(collectorOpts, roster.WithCheckpoints(store))
		}
	}

	if opts.metricsAddr != "" {
		shutdown := serveMetrics(opts.metricsAddr, logger)
		defer shutdown()
	}

	collector, err := roster.New(groupsClient, opts.collectorConfig(), collectorOpts...)
	if err != nil {
		return fmt.Errorf("create collector: %w", err)
	}

	status := cmd.ErrOrStderr()
	members, runErr := collector.Collect(ctx, groupID, func(s string) {
		fmt.Fprintln(status, s)
	})

	// Partial results are still written before the error is returned.
	if err := writeMembers(cmd.OutOrStdout(), members); err != nil {
		return fmt.Errorf("write members: %w", err)
	}
	return runErr
}

// openCheckpoints connects to Redis. An unreachable Redis only disables
// checkpointing for this run.
func openCheckpoints(ctx context.Context, opts *options, logger zerolog.Logger) (*checkpoint.Store, func()) {
	redisOpts, err := redisOptions(opts.redisAddr)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid Redis address, continuing without checkpoints")
		return nil, nil
	}

	redisClient := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		logger.Warn().Err(err).Str("redis", redisOpts.Addr).Msg("Redis unavailable, continuing without checkpoints")
		return nil, nil
	}
	logger.Info().Str("redis", redisOpts.Addr).Msg("Connected to Redis")

	return checkpoint.NewStore(redisClient, opts.checkpointTTL), func() { redisClient.Close() }
}

func serveMetrics(addr string, logger zerolog.Logger) func() {
	srv := metrics.NewServer(addr)
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}
}

func writeMembers(w io.Writer, members []roster.Member) error {
	if members == nil {
		members = []roster.Member{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(members)
}
