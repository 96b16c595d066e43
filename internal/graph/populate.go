package graph

import "context"

// PopulateStore copies a finalized Graph (and its cycle report) into a
// Store, grounding the query/impact subcommands (SPEC_FULL §6a) on the same
// resolved dependency data the cycle engine computed, mirroring the
// teacher's own walk-then-AddFile/AddEdge population pattern.
func PopulateStore(ctx context.Context, store Store, g *Graph, cycles []Cycle) error {
	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	for _, id := range g.Nodes() {
		if err := store.AddFile(ctx, g.interner.Record(id)); err != nil {
			return err
		}
	}
	for _, e := range g.meta {
		if err := store.AddEdge(ctx, e); err != nil {
			return err
		}
	}
	for _, c := range cycles {
		if err := store.AddCycle(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
