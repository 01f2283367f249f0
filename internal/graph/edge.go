package graph

// Edge records a connection made during Build, kept for introspection and
// for the topological sort; Process itself never walks Edges, it walks
// the pointers Build already resolved onto each Node.
type Edge struct {
	SrcNode NodeID
	DstNode NodeID
	Kind    PortKind
}
