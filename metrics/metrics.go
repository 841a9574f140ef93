// Package metrics exposes the Prometheus counters and OpenTelemetry
// spans component C10 requires across C3-C9 (SPEC_FULL.md §2): every
// subsystem records through these package-level collectors rather than
// each owning its own registry, the way the teacher's
// vms/avm/index/metrics.go centralizes one VM's counters behind a
// shared *prometheus.Registry.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	Registry = prometheus.NewRegistry()

	ConsensusRounds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "time_consensus_rounds_total",
		Help: "Avalanche sampling rounds run, labeled by outcome.",
	}, []string{"outcome"})

	FinalityVotesEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "time_finality_votes_emitted_total",
		Help: "FinalityVotes signed and submitted by this node.",
	})

	VFPsAssembled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "time_vfps_assembled_total",
		Help: "Verifiable Finality Proofs assembled locally.",
	})

	BlocksProduced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "time_blocks_produced_total",
		Help: "TSDC checkpoint blocks this validator produced.",
	})

	MempoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "time_mempool_size",
		Help: "Current pooled transaction count.",
	})

	ReorgDepth = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "time_reorg_depth",
		Help:    "Depth of accepted chain reorgs.",
		Buckets: prometheus.LinearBuckets(0, 50, 20),
	})
)

func init() {
	Registry.MustRegister(ConsensusRounds, FinalityVotesEmitted, VFPsAssembled, BlocksProduced, MempoolSize, ReorgDepth)
}

// tracer is the module-wide OpenTelemetry tracer. Absent an SDK
// provider configured by the embedding process, otel's default no-op
// implementation backs every span — spans are free until a real
// exporter is wired in main.
var tracer = otel.Tracer("github.com/time-coin/time-core")

// StartSpan opens a span named name, the way the teacher instruments
// its own hot paths (VM block verification, mempool admission) for
// distributed tracing.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}
