// Package ingest runs the feed consumer loop: receive, decode, gate and dispatch every
// admitted message to all processors.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/bgs-goals/internal/capture"
	"github.com/ajitpratap0/bgs-goals/internal/eddn"
	"github.com/ajitpratap0/bgs-goals/internal/metrics"
)

// DefaultWorkers is the default number of messages processed concurrently.
const DefaultWorkers = 4

// Loop consumes frames from a subscriber.
type Loop struct {
	sub        eddn.Subscriber
	gate       *eddn.Gate
	processors []capture.Processor
	workers    int
	systems    *keyedMutex
	logger     *slog.Logger
}

// New creates a consumer loop. A non-positive workers selects DefaultWorkers.
func New(sub eddn.Subscriber, gate *eddn.Gate, processors []capture.Processor, workers int, logger *slog.Logger) *Loop {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Loop{
		sub:        sub,
		gate:       gate,
		processors: processors,
		workers:    workers,
		systems:    newKeyedMutex(),
		logger:     logger,
	}
}

// Run receives frames until ctx is cancelled, then waits for in-flight messages.
// Per-frame failures are logged and never end the loop.
func (l *Loop) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(l.workers)
	work := context.WithoutCancel(ctx)

	l.logger.Info("ingest loop started", "workers", l.workers, "processors", len(l.processors))
	// failures counts consecutive receive errors; only the first of a streak is logged at Warn.
	failures := 0
	for ctx.Err() == nil {
		frame, err := l.sub.Receive(ctx)
		switch {
		case ctx.Err() != nil:
		case errors.Is(err, eddn.ErrReceiveTimeout):
			l.logger.Warn("no frame received, still waiting")
		case err != nil:
			metrics.Inc(metrics.FramesDropped)
			failures++
			if failures == 1 {
				l.logger.Warn("receiving frame", "error", err)
			} else {
				l.logger.Debug("receiving frame", "error", err, "consecutive_failures", failures)
			}
		default:
			if failures > 0 {
				l.logger.Info("receiving frames again", "failed_receives", failures)
				failures = 0
			}
			g.Go(func() error {
				l.HandleFrame(work, frame)
				return nil
			})
		}
	}

	_ = g.Wait()
	l.logger.Info("ingest loop stopped")
	return nil
}

// HandleFrame decodes one raw frame and dispatches it to every processor. It is
// exported for tests.
func (l *Loop) HandleFrame(ctx context.Context, frame []byte) {
	metrics.Inc(metrics.FramesReceived)
	id := uuid.NewString()
	logger := l.logger.With("frame", id)

	doc, err := eddn.DecodeFrame(frame)
	if err != nil {
		l.drop(logger, err)
		return
	}
	env, ok, err := l.gate.Admit(doc)
	if err != nil {
		l.drop(logger, err)
		return
	}
	if !ok {
		metrics.Inc(metrics.MessagesStale)
		return
	}
	ev, err := eddn.DecodeEvent(env)
	if err != nil {
		l.drop(logger, err)
		return
	}

	msg := &eddn.Message{ID: id, Envelope: env, Event: ev}
	if system := starSystem(ev); system != "" {
		defer l.systems.Lock(system)()
	}
	for _, p := range l.processors {
		l.runProcessor(ctx, logger, p, msg)
	}
	metrics.Inc(metrics.MessagesProcessed)
}

func (l *Loop) drop(logger *slog.Logger, err error) {
	metrics.Inc(metrics.FramesDropped)
	logger.Warn("dropping message", "category", eddn.CategoryOf(err), "error", err)
}

// runProcessor isolates one processor's failure from the others.
func (l *Loop) runProcessor(ctx context.Context, logger *slog.Logger, p capture.Processor, msg *eddn.Message) {
	defer func() {
		if r := recover(); r != nil {
			metrics.Inc(metrics.ProcessorErrors)
			logger.Error("processor panicked", "processor", p.Name(), "event", msg.Event.EventName(), "panic", fmt.Sprint(r))
		}
	}()

	err := p.Process(ctx, msg)
	if err == nil {
		return
	}
	var pe *eddn.ParseError
	if errors.As(err, &pe) {
		logger.Warn("skipping malformed message", "processor", p.Name(), "category", pe.Category, "error", err)
		return
	}
	metrics.Inc(metrics.ProcessorErrors)
	logger.Error("processor failed", "processor", p.Name(), "event", msg.Event.EventName(), "error", err)
}

func starSystem(ev eddn.Event) string {
	switch e := ev.(type) {
	case *eddn.SystemEvent:
		return e.StarSystem
	case *eddn.SignalsEvent:
		return e.StarSystem
	default:
		return ""
	}
}
