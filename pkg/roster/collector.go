package roster

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/group-roster-client/pkg/client"
	"github.com/Sternrassler/group-roster-client/pkg/logging"
	"github.com/rs/zerolog"
)

// PageFetcher is implemented by client.Client. One call is one network request.
type PageFetcher interface {
	FetchPage(ctx context.Context, groupID, cursor string) client.Outcome
}

// Reporter receives human-readable status updates. It is called synchronously
// from the goroutine running Collect; callers marshal to their UI themselves.
type Reporter func(status string)

// Snapshot is the resumable state of an unfinished run.
type Snapshot struct {
	Cursor  string    `json:"cursor"`
	Members []Member  `json:"members"`
	SavedAt time.Time `json:"saved_at"`
}

// Checkpointer persists snapshots between process runs. Load returns nil, nil
// when no snapshot exists.
type Checkpointer interface {
	Load(ctx context.Context, groupID string) (*Snapshot, error)
	Save(ctx context.Context, groupID string, snap Snapshot) error
	Delete(ctx context.Context, groupID string) error
}

// checkpointTimeout bounds a single checkpoint store call.
const checkpointTimeout = 5 * time.Second

// Config holds the collector configuration.
type Config struct {
	// PageDelay is the pause between successful pages.
	PageDelay time.Duration

	// Retry governs connectivity failures and rate limits.
	Retry RetryPolicy

	// CheckpointEvery saves a snapshot after every n-th page (only with a Checkpointer).
	CheckpointEvery int
}

// DefaultConfig returns the collector defaults: 500ms between pages, fixed 3s
// retries without limit.
func DefaultConfig() Config {
	return Config{
		PageDelay:       500 * time.Millisecond,
		Retry:           DefaultRetryPolicy(),
		CheckpointEvery: 10,
	}
}

// Collector walks a group's cursor-paginated member listing.
type Collector struct {
	fetcher     PageFetcher
	config      Config
	checkpoints Checkpointer
	logger      zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Collector.
type Option func(*Collector)

// WithCheckpoints enables resumable runs.
func WithCheckpoints(cp Checkpointer) Option {
	return func(c *Collector) {
		c.checkpoints = cp
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collector) {
		c.logger = logger
	}
}

// WithSleeper replaces the wait function (for testing).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Collector) {
		c.sleep = sleep
	}
}

// New creates a new collector.
func New(fetcher PageFetcher, cfg Config, opts ...Option) (*Collector, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}

	if cfg.PageDelay < 0 {
		return nil, fmt.Errorf("page delay must not be negative (got %s)", cfg.PageDelay)
	}

	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("retry policy: %w", err)
	}

	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 1
	}

	c := &Collector{
		fetcher: fetcher,
		config:  cfg,
		logger:  logging.NewLogger(logging.ComponentRoster),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Collect fetches every page of the group's members. On success the members are
// unique and sorted by UserID. On error the members collected so far are
// returned in arrival order, except for ErrAccessDenied which always returns none.
func (c *Collector) Collect(ctx context.Context, groupID string, report Reporter) ([]Member, error) {
	if report == nil {
		report = func(string) {}
	}
	r := &run{
		groupID: groupID,
		acc:     NewAccumulator(),
		logger:  c.logger.With().Str("group_id", groupID).Logger(),
		report:  report,
		start:   time.Now(),
	}

	r.report("Starting...")
	if snap := c.loadSnapshot(ctx, r); snap != nil {
		r.acc.Seed(snap.Members)
		r.cursor = snap.Cursor
		r.report(fmt.Sprintf("Resuming from checkpoint (%d members)...", r.acc.Len()))
	}

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return c.cancelled(ctx, r, err)
		}

		outcome := c.fetcher.FetchPage(ctx, groupID, r.cursor)

		switch c.config.Retry.Decide(outcome) {
		case ActionRetry:
			attempts++
			reason := string(outcome.Class)

			if c.config.Retry.Exhausted(attempts) {
				return c.exhausted(ctx, r, outcome, attempts)
			}

			delay := c.config.Retry.Backoff(attempts, outcome)
			rosterRetriesTotal.WithLabelValues(reason).Inc()
			rosterRetryBackoffSeconds.WithLabelValues(reason).Observe(delay.Seconds())

			r.logger.Warn().
				Str("error_class", reason).
				Int("attempt", attempts).
				Dur("backoff", delay).
				Str("cursor", r.cursor).
				Msg("Retrying page after backoff")
			r.report(retryStatus(outcome, delay))

			if err := c.sleep(ctx, delay); err != nil {
				return c.cancelled(ctx, r, err)
			}
			continue

		case ActionAbort:
			return c.abort(ctx, r, outcome)
		}

		if attempts > 0 {
			r.logger.Info().Int("attempt", attempts+1).Msg("Page succeeded after retry")
		}
		attempts = 0
		r.pages++
		rosterPagesTotal.Inc()

		added := r.acc.Add(outcome.Items)
		r.logger.Debug().
			Int("page", r.pages).
			Int("items", len(outcome.Items)).
			Int("added", added).
			Int("total", r.acc.Len()).
			Msg("Page merged")
		r.report(fmt.Sprintf("Collected %d members...", r.acc.Len()))

		if !outcome.HasNext() {
			break
		}
		r.cursor = outcome.NextCursor

		if r.pages%c.config.CheckpointEvery == 0 {
			c.saveSnapshot(ctx, r)
		}

		if err := c.sleep(ctx, c.config.PageDelay); err != nil {
			return c.cancelled(ctx, r, err)
		}
	}

	c.deleteSnapshot(ctx, r)

	members := r.acc.Sorted()
	rosterRunsTotal.WithLabelValues("completed").Inc()
	rosterMembersCollected.Observe(float64(len(members)))
	r.logger.Info().
		Int("members", len(members)).
		Int("pages", r.pages).
		Dur("duration", time.Since(r.start)).
		Msg("Roster collection complete")
	r.report(fmt.Sprintf("Done. Collected %d members.", len(members)))

	return members, nil
}

// run is the state owned by one Collect call.
type run struct {
	groupID string
	cursor  string
	pages   int
	acc     *Accumulator
	logger  zerolog.Logger
	report  Reporter
	start   time.Time
}

func (c *Collector) abort(ctx context.Context, r *run, outcome client.Outcome) ([]Member, error) {
	if outcome.Kind == client.KindForbidden {
		c.deleteSnapshot(ctx, r)
		rosterRunsTotal.WithLabelValues("forbidden").Inc()
		r.logger.Warn().Msg("Group roster is private")
		r.report(AccessDeniedMessage)
		return []Member{}, ErrAccessDenied
	}

	err := outcome.AsError()
	if err == nil {
		err = fmt.Errorf("unexpected outcome %s", outcome.Kind)
	}
	if outcome.Class == client.ErrorClassCancelled {
		return c.cancelled(ctx, r, err)
	}

	c.saveSnapshot(ctx, r)
	rosterRunsTotal.WithLabelValues("failed").Inc()
	r.logger.Error().
		Err(err).
		Int("status", outcome.StatusCode).
		Str("error_class", string(outcome.Class)).
		Int("members", r.acc.Len()).
		Msg("Roster collection failed")
	r.report(err.Error())
	return r.acc.Members(), err
}

func (c *Collector) exhausted(ctx context.Context, r *run, outcome client.Outcome, attempts int) ([]Member, error) {
	reason := string(outcome.Class)
	rosterRetryExhaustedTotal.WithLabelValues(reason).Inc()
	rosterRunsTotal.WithLabelValues("exhausted").Inc()

	c.saveSnapshot(ctx, r)
	err := fmt.Errorf("%w after %d attempts: %s", ErrRetryExhausted, attempts, retryCause(outcome))
	r.logger.Error().Err(err).Str("cursor", r.cursor).Msg("Giving up on page")
	r.report(err.Error())
	return r.acc.Members(), err
}

func (c *Collector) cancelled(ctx context.Context, r *run, cause error) ([]Member, error) {
	c.saveSnapshot(ctx, r)
	rosterRunsTotal.WithLabelValues("cancelled").Inc()
	err := fmt.Errorf("%w: %w", ErrCancelled, cause)
	r.logger.Warn().Err(cause).Int("members", r.acc.Len()).Msg("Roster collection cancelled")
	r.report(err.Error())
	return r.acc.Members(), err
}

func (c *Collector) loadSnapshot(ctx context.Context, r *run) *Snapshot {
	if c.checkpoints == nil {
		return nil
	}
	snap, err := c.checkpoints.Load(ctx, r.groupID)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to load checkpoint, starting from the first page")
		return nil
	}
	if snap == nil || snap.Cursor == "" {
		return nil
	}
	r.logger.Info().
		Int("members", len(snap.Members)).
		Time("saved_at", snap.SavedAt).
		Msg("Resuming from checkpoint")
	return snap
}

// saveSnapshot and deleteSnapshot never fail the run: already-fetched members
// stay in memory regardless of the store. Both outlive a cancelled ctx so that
// an interrupted run still leaves its progress behind.
func (c *Collector) saveSnapshot(ctx context.Context, r *run) {
	if c.checkpoints == nil || r.cursor == "" {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkpointTimeout)
	defer cancel()

	snap := Snapshot{Cursor: r.cursor, Members: r.acc.Members(), SavedAt: time.Now()}
	if err := c.checkpoints.Save(storeCtx, r.groupID, snap); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to save checkpoint")
	}
}

func (c *Collector) deleteSnapshot(ctx context.Context, r *run) {
	if c.checkpoints == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkpointTimeout)
	defer cancel()

	if err := c.checkpoints.Delete(storeCtx, r.groupID); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to delete checkpoint")
	}
}

func retryStatus(o client.Outcome, delay time.Duration) string {
	if o.Kind == client.KindRateLimited {
		return fmt.Sprintf("Rate limited (429). Waiting %s...", seconds(delay))
	}
	return fmt.Sprintf("Offline / DNS error. Please check internet. Retrying in %s...", seconds(delay))
}

func retryCause(o client.Outcome) string {
	if o.Kind == client.KindRateLimited {
		return "rate limited (429)"
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return string(o.Class)
}

func seconds(d time.Duration) string {
	s := strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
	if s == "1" {
		return "1 second"
	}
	return s + " seconds"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
