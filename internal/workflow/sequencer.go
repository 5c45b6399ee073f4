package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// ErrNodePanic reports a node that panicked; the sequencer treats it as a
// regular node failure.
var ErrNodePanic = errors.New("workflow: node panicked")

// Sequencer runs nodes in order behind a failure boundary.
type Sequencer struct {
	nodes  []Node
	logger *slog.Logger
}

// NewSequencer builds a sequencer over nodes, executed in the given order.
func NewSequencer(nodes []Node, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sequencer{nodes: nodes, logger: logger}
}

// Run applies every node to st and returns the final state. A failing node
// leaves the state exactly as it entered that node and the run moves on.
// When ctx ends, the remaining nodes are recorded as skipped and the state
// accumulated so far is returned with Partial set.
func (s *Sequencer) Run(ctx context.Context, st *State) *State {
	for i, node := range s.nodes {
		if ctx.Err() != nil {
			s.stop(st, i, ctx.Err())
			break
		}

		name := string(node.Name())
		started := time.Now()
		work := st.Clone()
		if err := s.apply(ctx, node, work); err != nil {
			st.Metadata.RecordFailure(name, err)
			s.logger.Warn("node failed, state reverted",
				"node", name, "duration", time.Since(started), "error", err)
			continue
		}
		st = work
		s.logger.Info("node finished",
			"node", name, "items", len(st.Items), "duration", time.Since(started))
	}
	return st
}

func (s *Sequencer) stop(st *State, from int, cause error) {
	for _, node := range s.nodes[from:] {
		st.Metadata.Skipped = append(st.Metadata.Skipped, string(node.Name()))
	}
	st.Metadata.Partial = true
	s.logger.Warn("run budget exhausted, emitting partial state",
		"skipped", st.Metadata.Skipped, "cause", cause)
}

func (s *Sequencer) apply(ctx context.Context, node Node, st *State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("node panic", "node", string(node.Name()), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrNodePanic, r)
		}
	}()
	return node.Apply(ctx, st)
}
