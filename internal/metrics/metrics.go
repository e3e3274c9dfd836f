// Package metrics exposes the prometheus counters and gauges this pipeline
// emits, grounded directly in 0xkanth-polymarket-indexer's consumer
// (promauto.NewCounterVec keyed by event type, plus a processing-lag gauge)
// for the same kind of at-least-once ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainindexer_events_ingested_total",
		Help: "Total number of raw events persisted by the event ingester, by kind.",
	}, []string{"kind"})

	EventsDeduplicated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainindexer_events_deduplicated_total",
		Help: "Total number of raw events dropped as already-processed (unique violation), by kind.",
	}, []string{"kind"})

	ModelsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainindexer_models_ingested_total",
		Help: "Total number of model snapshots upserted, by model type.",
	}, []string{"model"})

	DeriverBatchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainindexer_deriver_batch_errors_total",
		Help: "Total number of failed deriver batches, by deriver name.",
	}, []string{"deriver"})

	DeriverLagSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chainindexer_deriver_lag_seconds",
		Help: "Seconds between the last-processed event's timestamp and now, by deriver name.",
	}, []string{"deriver"})

	WorkerRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainindexer_worker_restarts_total",
		Help: "Total number of times the supervisor observed a worker's Run return with an error.",
	}, []string{"worker"})

	PriceSnapshotSwaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainindexer_price_snapshot_swaps_total",
		Help: "Total number of successful atomic price snapshot swaps.",
	})

	PriceProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainindexer_price_provider_errors_total",
		Help: "Total number of price provider fetch errors, by provider.",
	}, []string{"provider"})
)
