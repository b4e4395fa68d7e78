package engine

import (
	"context"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
)

// Clock is the sole time source. Values <= 0 mean the clock is not yet valid.
type Clock interface {
	Now() float64
}

// Roster is the authoritative external crew list.
type Roster interface {
	// Crew enumerates every roster entry, including excluded categories.
	Crew(ctx context.Context) ([]crew.Member, error)
	Lookup(ctx context.Context, name string) (crew.Member, bool, error)
	// Detach removes an assigned member from its placement.
	Detach(ctx context.Context, name string) error
	SetStatus(ctx context.Context, name string, status crew.Status) error
}

// SuspensionSet reports frozen crew. Lookups may fail when the provider is down.
type SuspensionSet interface {
	IsSuspended(ctx context.Context, name string) (bool, error)
}

// NoSuspension is a SuspensionSet for hosts without freeze tracking.
type NoSuspension struct{}

func (NoSuspension) IsSuspended(context.Context, string) (bool, error) { return false, nil }
