// Package metrics exposes the Prometheus gauges and counters the finality
// core publishes: pointer heights, quorum outcomes, message DoS scores, and
// proposal execution results.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type registry struct {
	localFinalHeight  prometheus.Gauge
	globalFinalHeight prometheus.Gauge
	quorumChecks      *prometheus.CounterVec
	messageScores     prometheus.Histogram
	proposalOutcomes  *prometheus.CounterVec
	peerDisconnects   prometheus.Counter
}

var (
	once sync.Once
	reg  *registry
)

// Registry returns the process-wide metrics registry, registering it with
// the default Prometheus registerer on first use.
func Registry() *registry {
	once.Do(func() {
		reg = &registry{
			localFinalHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "wakichain",
				Subsystem: "finality",
				Name:      "local_final_height",
				Help:      "Height of the local finality pointer.",
			}),
			globalFinalHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "wakichain",
				Subsystem: "finality",
				Name:      "global_final_height",
				Help:      "Height of the global finality pointer.",
			}),
			quorumChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wakichain",
				Subsystem: "finality",
				Name:      "quorum_checks_total",
				Help:      "Count of quorum checks segmented by round and outcome.",
			}, []string{"round", "outcome"}),
			messageScores: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "wakichain",
				Subsystem: "pbft",
				Name:      "message_dos_score",
				Help:      "Distribution of DoS scores assigned to rejected PBFT messages.",
				Buckets:   []float64{10, 25, 50, 75, 100},
			}),
			proposalOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wakichain",
				Subsystem: "governance",
				Name:      "proposal_outcomes_total",
				Help:      "Count of proposal Check/Execute outcomes segmented by kind and result.",
			}, []string{"kind", "phase", "result"}),
			peerDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "wakichain",
				Subsystem: "pbft",
				Name:      "peer_disconnects_total",
				Help:      "Count of peers disconnected for exceeding the misbehaviour score threshold.",
			}),
		}
		prometheus.MustRegister(
			reg.localFinalHeight,
			reg.globalFinalHeight,
			reg.quorumChecks,
			reg.messageScores,
			reg.proposalOutcomes,
			reg.peerDisconnects,
		)
	})
	return reg
}

func (r *registry) SetLocalFinalHeight(height uint64) {
	if r == nil {
		return
	}
	r.localFinalHeight.Set(float64(height))
}

func (r *registry) SetGlobalFinalHeight(height uint64) {
	if r == nil {
		return
	}
	r.globalFinalHeight.Set(float64(height))
}

func (r *registry) RecordQuorumCheck(round string, reached bool) {
	if r == nil {
		return
	}
	outcome := "insufficient"
	if reached {
		outcome = "reached"
	}
	r.quorumChecks.WithLabelValues(strings.ToLower(round), outcome).Inc()
}

func (r *registry) RecordMessageScore(score int) {
	if r == nil {
		return
	}
	r.messageScores.Observe(float64(score))
}

func (r *registry) RecordProposalOutcome(kind, phase string, ok bool) {
	if r == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "accepted"
	}
	r.proposalOutcomes.WithLabelValues(strings.ToLower(kind), strings.ToLower(phase), result).Inc()
}

func (r *registry) RecordPeerDisconnect() {
	if r == nil {
		return
	}
	r.peerDisconnects.Inc()
}
