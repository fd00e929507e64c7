package checkpoint

import "strings"

// KeyPrefix namespaces all checkpoint keys.
const KeyPrefix = "roster:checkpoint"

// Key identifies the checkpoint of one group.
type Key struct {
	GroupID string
}

// String generates the Redis key.
// Format: roster:checkpoint:group:<id>
func (k Key) String() string {
	return KeyPrefix + ":group:" + strings.TrimSpace(k.GroupID)
}
