// Package checkpoint persists unfinished roster runs in Redis so that a
// restarted process resumes from the last saved cursor instead of page one.
//
// A Store implements roster.Checkpointer:
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := checkpoint.NewStore(redisClient, checkpoint.DefaultTTL)
//
//	collector, _ := roster.New(c, roster.DefaultConfig(), roster.WithCheckpoints(store))
//
// Snapshots are stored as JSON under roster:checkpoint:group:<id> and expire
// after the configured TTL, so an abandoned run does not pin stale data.
//
// # Metrics
//
//   - roster_checkpoint_operations_total{operation,result} - load/save/delete
//     calls by result (hit, miss, ok, error)
package checkpoint
