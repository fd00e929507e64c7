package checkpoint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operations tracks checkpoint store calls
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_checkpoint_operations_total",
			Help: "Total number of checkpoint store operations",
		},
		[]string{"operation", "result"}, // "load|save|delete", "hit|miss|ok|error"
	)
)
