// Package capture turns admitted feed messages into stored facts.
package capture

import (
	"context"
	"errors"

	"github.com/ajitpratap0/bgs-goals/internal/eddn"
)

// ErrFormat marks a message field whose value cannot be interpreted, such as an
// influence outside [0,1]. It is wrapped in an *eddn.ParseError of category bad_format.
var ErrFormat = errors.New("malformed field")

// Processor consumes admitted feed messages. Every processor sees every message;
// implementations ignore events they do not handle and must be safe for concurrent use.
type Processor interface {
	Name() string
	Process(ctx context.Context, msg *eddn.Message) error
}

// Relevance answers whether a message concerns any guild.
type Relevance interface {
	IsSupportedMinorFaction(ctx context.Context, faction string) (bool, error)
	IsGoalStarSystem(ctx context.Context, system string) (bool, error)
}

// GuildLookup maps a star system to the guilds interested in it.
type GuildLookup interface {
	GuildsForStarSystem(ctx context.Context, system string) ([]string, error)
}

func missingField(field string) error {
	return &eddn.ParseError{Category: eddn.CategoryMissingField, Field: field}
}

func badFormat(field string, err error) error {
	return &eddn.ParseError{Category: eddn.CategoryBadFormat, Field: field, Err: err}
}
