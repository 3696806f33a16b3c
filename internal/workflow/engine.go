// Package workflow runs declarative node pipelines over a shared state map.
// Nodes execute strictly in order; there is no parallel branching. Each node
// declares the state keys it reads and writes so a pipeline can be validated
// before anything runs.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// State is the shared document a pipeline threads through its nodes
type State map[string]any

// Clone returns a shallow copy
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// FailurePolicy controls what a node failure does to the pipeline
type FailurePolicy int

const (
	// Fatal aborts the pipeline on failure
	Fatal FailurePolicy = iota
	// Recoverable merges the node's fallback output and continues
	Recoverable
)

func (p FailurePolicy) String() string {
	if p == Recoverable {
		return "recoverable"
	}
	return "fatal"
}

// Node is one pipeline step
type Node struct {
	Name      string
	Reads     []string
	Writes    []string
	Run       func(ctx context.Context, state State) (map[string]any, error)
	OnFailure FailurePolicy
	// Fallback is merged into state when a Recoverable node fails
	Fallback map[string]any
	// Continue, when set and returning false, finishes the pipeline early
	// without running later nodes. Early exit is success, not failure.
	Continue func(state State) bool
}

// NodeError wraps a failure from a Fatal node
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Hooks observe node boundaries. Engines call them synchronously, so hook
// work counts against the pipeline's deadline.
type Hooks struct {
	OnNodeStart func(name string, index, total int)
	OnNodeDone  func(name string, index, total int, err error, policy FailurePolicy, elapsed time.Duration)
}

// Validate checks that every key a node reads is either present initially or
// written by an earlier node.
func Validate(nodes []Node, initialKeys []string) error {
	available := make(map[string]bool, len(initialKeys))
	for _, k := range initialKeys {
		available[k] = true
	}

	for _, n := range nodes {
		for _, r := range n.Reads {
			if !available[r] {
				return fmt.Errorf("node %q reads %q, which no earlier node writes", n.Name, r)
			}
		}
		for _, w := range n.Writes {
			available[w] = true
		}
	}

	return nil
}

// Engine executes pipelines
type Engine struct {
	logger *slog.Logger
	hooks  Hooks
}

// NewEngine creates an engine with optional hooks
func NewEngine(logger *slog.Logger, hooks Hooks) *Engine {
	return &Engine{logger: logger, hooks: hooks}
}

// Run executes nodes in order against a copy of initial and returns the
// final state. Context cancellation is checked at every node boundary. A
// node writing a key it did not declare is a programming error and aborts
// the pipeline regardless of failure policy.
func (e *Engine) Run(ctx context.Context, nodes []Node, initial State) (State, error) {
	state := initial.Clone()
	total := len(nodes)

	for i, node := range nodes {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		if e.hooks.OnNodeStart != nil {
			e.hooks.OnNodeStart(node.Name, i, total)
		}

		started := time.Now()
		out, err := node.Run(ctx, state)
		elapsed := time.Since(started)

		if err != nil {
			if e.hooks.OnNodeDone != nil {
				e.hooks.OnNodeDone(node.Name, i, total, err, node.OnFailure, elapsed)
			}

			if node.OnFailure == Recoverable {
				e.logger.Warn("node failed, continuing with fallback",
					slog.String("node", node.Name),
					slog.Any("error", err),
				)
				for k, v := range node.Fallback {
					state[k] = v
				}
				continue
			}

			return state, &NodeError{Node: node.Name, Err: err}
		}

		declared := make(map[string]bool, len(node.Writes))
		for _, w := range node.Writes {
			declared[w] = true
		}
		for k, v := range out {
			if !declared[k] {
				undeclared := fmt.Errorf("wrote undeclared key %q", k)
				if e.hooks.OnNodeDone != nil {
					e.hooks.OnNodeDone(node.Name, i, total, undeclared, node.OnFailure, elapsed)
				}
				return state, &NodeError{Node: node.Name, Err: undeclared}
			}
			state[k] = v
		}

		if e.hooks.OnNodeDone != nil {
			e.hooks.OnNodeDone(node.Name, i, total, nil, node.OnFailure, elapsed)
		}

		if node.Continue != nil && !node.Continue(state) {
			e.logger.Info("pipeline finished early",
				slog.String("node", node.Name),
			)
			return state, nil
		}
	}

	return state, nil
}
