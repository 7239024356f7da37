// Package metrics provides application-level counters using stdlib expvar.
// Counters are exported on the /debug/vars HTTP endpoint of the serve command.
package metrics

import "expvar"

// Ingestion counters.
var (
	FramesReceived    = expvar.NewInt("bgs_frames_received_total")
	FramesDropped     = expvar.NewInt("bgs_frames_dropped_total")
	MessagesStale     = expvar.NewInt("bgs_messages_stale_total")
	MessagesProcessed = expvar.NewInt("bgs_messages_processed_total")
	FactsStored       = expvar.NewInt("bgs_facts_stored_total")
	ProcessorErrors   = expvar.NewInt("bgs_processor_errors_total")
	CarrierMoves      = expvar.NewInt("bgs_carrier_moves_total")
)

// Read API counters.
var (
	TodoGenerated = expvar.NewInt("bgs_todo_generated_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
