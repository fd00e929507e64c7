// Package roster collects the complete, deduplicated member list of a group
// from the cursor-paginated groups API.
//
// A run is a single sequential request loop: at most one page request is in
// flight, connectivity failures and rate limits are waited out and the same
// cursor is requested again, and every successful page is folded into an
// Accumulator keyed by user id. When the API stops returning a cursor the
// members are sorted ascending by id and returned.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig("group-roster/1.0"))
//	collector, _ := roster.New(c, roster.DefaultConfig())
//	members, err := collector.Collect(ctx, "4199740", func(status string) {
//		fmt.Println(status)
//	})
//
// Outcomes and what the loop does with them:
//   - success: merge, wait PageDelay, follow the next cursor (or finish)
//   - network failure / 429: report, wait per RetryPolicy, repeat
//   - 403: stop, return no members and ErrAccessDenied
//   - other status or undecodable body: stop, return partial members and a *client.RequestError
//
// The default RetryPolicy never gives up, matching the behaviour users of the
// exporter rely on; set MaxAttempts or cancel the context to bound a run.
//
// With WithCheckpoints the loop periodically persists its cursor and members so
// that a restarted process picks up where it left off.
package roster
