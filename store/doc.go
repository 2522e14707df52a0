// Package store persists graphs and projects in SQLite.
//
// The schema is managed by goose migrations embedded in the binary and
// applied on Open. Node and edge rows cascade with their graph, and
// deleting a node removes every edge touching it.
//
// Usage:
//
//	st, err := store.Open("data/graphbox", logger)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	g, err := st.CreateGraph(ctx, store.InputFromDraft("Ring", draft))
package store
