// ABOUTME: Prometheus metrics for admission decisions
// ABOUTME: One counter vector labelled by decision outcome

package policy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "relay_console",
		Subsystem: "policy",
		Name:      "decisions_total",
		Help:      "Admission decisions produced by the policy engine.",
	},
	[]string{"decision"},
)
