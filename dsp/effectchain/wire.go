package effectchain

import (
	"fmt"

	"github.com/cwbudde/algo-fxchain/dsp/graph"
)

// Wire routes source through the units named by order into destination:
// source → first input, each output → next input, last output →
// destination. Prior outgoing edges of source and of every unit output are
// removed first, so wiring twice is the same as wiring once. An empty
// order connects source straight to destination.
func Wire(ctx *graph.Context, source, destination graph.NodeID, order []string, units Units) error {
	for _, id := range order {
		if u := units[id]; u == nil {
			return fmt.Errorf("%w: no unit for %q", ErrInternalInconsistency, id)
		}
	}

	err := ctx.Disconnect(source)
	if err != nil {
		return fmt.Errorf("effectchain: wire: %w", err)
	}

	for _, u := range units {
		if u == nil {
			continue
		}

		if err := ctx.Disconnect(u.Output); err != nil {
			return fmt.Errorf("effectchain: wire: %w", err)
		}
	}

	head := source

	for _, id := range order {
		u := units[id]

		if err := ctx.Connect(head, u.Input); err != nil {
			return fmt.Errorf("effectchain: wire %s: %w", id, err)
		}

		head = u.Output
	}

	if err := ctx.Connect(head, destination); err != nil {
		return fmt.Errorf("effectchain: wire output: %w", err)
	}

	return nil
}
