package capture

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ajitpratap0/bgs-goals/internal/eddn"
	"github.com/ajitpratap0/bgs-goals/internal/metrics"
	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/store"
)

// carrierCallSign matches the XXX-XXX identifier fleet carriers end their signal name with.
var carrierCallSign = regexp.MustCompile(`([A-Z0-9]{3}-[A-Z0-9]{3})$`)

// ParseCarrierSignal splits a fleet carrier signal name such as "FLEET CARRIER K7Q-1HT"
// into its display name and call sign. ok is false for any other signal.
func ParseCarrierSignal(signalName string) (name, callSign string, ok bool) {
	s := strings.TrimSpace(signalName)
	m := carrierCallSign.FindStringSubmatchIndex(s)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(s[:m[2]]), s[m[2]:m[3]], true
}

// CarrierProcessor records fleet carrier positions in star systems some guild follows.
type CarrierProcessor struct {
	guilds GuildLookup
	st     store.Store
	logger *slog.Logger
}

// NewCarrierProcessor creates a carrier-movement processor.
func NewCarrierProcessor(guilds GuildLookup, st store.Store, logger *slog.Logger) *CarrierProcessor {
	return &CarrierProcessor{guilds: guilds, st: st, logger: logger}
}

func (p *CarrierProcessor) Name() string { return "carrier" }

func (p *CarrierProcessor) Process(ctx context.Context, msg *eddn.Message) error {
	ev, ok := msg.Event.(*eddn.SignalsEvent)
	if !ok {
		return nil
	}
	if ev.StarSystem == "" {
		return missingField("message.StarSystem")
	}

	guilds, err := p.guilds.GuildsForStarSystem(ctx, ev.StarSystem)
	if err != nil {
		return fmt.Errorf("looking up guilds for %s: %w", ev.StarSystem, err)
	}
	if len(guilds) == 0 {
		return nil
	}

	fallback, err := eddn.ObservedAt(ev.Timestamp, msg.Envelope.Header.GatewayTimestamp)
	if err != nil {
		return err
	}

	for _, sig := range ev.Signals {
		if !sig.IsStation {
			continue
		}
		name, callSign, ok := ParseCarrierSignal(sig.SignalName)
		if !ok {
			continue
		}
		observed, err := eddn.ObservedAt(sig.Timestamp, fallback)
		if err != nil {
			return err
		}

		moved, previous, err := p.st.RecordCarrierSighting(ctx, models.CarrierSighting{
			CarrierID:  callSign,
			Name:       name,
			StarSystem: ev.StarSystem,
			ObservedAt: observed,
		})
		if err != nil {
			return fmt.Errorf("recording carrier %s: %w", callSign, err)
		}
		if moved {
			metrics.Inc(metrics.CarrierMoves)
			p.logger.Info("fleet carrier moved",
				"frame", msg.ID,
				"carrier", callSign,
				"from", previous,
				"to", ev.StarSystem,
				"guilds", guilds,
			)
		}
	}
	return nil
}
