// Package gate decides whether a computed index replaces the one on disk.
package gate

import (
	"context"
	"fmt"

	"github.com/JanSimek/fallout2-modding/internal/logging"
)

// State is a step of the update protocol.
type State string

const (
	Computed             State = "computed"
	PreviewOnly          State = "preview-only"
	AwaitingConfirmation State = "awaiting-confirmation"
	Confirmed            State = "confirmed"
	Aborted              State = "aborted"
	Persisted            State = "persisted"
)

// Mode selects how the gate proceeds from Computed.
type Mode int

const (
	// Interactive asks the Confirmer.
	Interactive Mode = iota
	// Preview never writes.
	Preview
	// AutoConfirm writes without asking.
	AutoConfirm
)

// Confirmer asks whether to proceed with a write.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// PersistFunc performs the write. It runs at most once per gate.
type PersistFunc func() error

// Gate walks a single computed update through the protocol.
type Gate struct {
	mode      Mode
	confirmer Confirmer
	persist   PersistFunc
	logger    *logging.Logger

	state   State
	history []State
}

// New creates a gate in the Computed state.
func New(mode Mode, confirmer Confirmer, persist PersistFunc, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Gate{
		mode:      mode,
		confirmer: confirmer,
		persist:   persist,
		logger:    logger,
		state:     Computed,
		history:   []State{Computed},
	}
}

// State returns the current state.
func (g *Gate) State() State {
	return g.state
}

// History returns every state visited, in order.
func (g *Gate) History() []State {
	return append([]State(nil), g.history...)
}

func (g *Gate) move(s State) {
	g.logger.Debug("gate transition", logging.Fields{"from": string(g.state), "to": string(s)})
	g.state = s
	g.history = append(g.history, s)
}

// Run drives the gate to a terminal state: PreviewOnly, Aborted or Persisted.
// A persistence failure leaves the gate in Confirmed and is returned.
func (g *Gate) Run(ctx context.Context, prompt string) (State, error) {
	if g.state != Computed {
		return g.state, fmt.Errorf("gate already ran (state %s)", g.state)
	}

	switch g.mode {
	case Preview:
		g.move(PreviewOnly)
		return g.state, nil

	case AutoConfirm:
		g.move(Confirmed)

	default:
		if g.confirmer == nil {
			return g.state, fmt.Errorf("interactive gate has no confirmer")
		}
		g.move(AwaitingConfirmation)
		ok, err := g.confirmer.Confirm(ctx, prompt)
		if err != nil {
			g.move(Aborted)
			return g.state, fmt.Errorf("confirmation: %w", err)
		}
		if !ok {
			g.move(Aborted)
			return g.state, nil
		}
		g.move(Confirmed)
	}

	if err := ctx.Err(); err != nil {
		g.move(Aborted)
		return g.state, err
	}
	if err := g.persist(); err != nil {
		return g.state, err
	}
	g.move(Persisted)
	return g.state, nil
}
