package dag

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrInvalidEdgeID is returned by [DAG.AddEdge] when the edge ID is empty.
	ErrInvalidEdgeID = errors.New("edge ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists. Node IDs are unique within a snapshot.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrDuplicateEdgeID is returned by [DAG.AddEdge] when an edge with the
	// same ID already exists.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrUnknownNode is returned by [DAG.Reparent] when either the node or
	// the requested parent does not exist.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrHierarchyCycle is returned by [DAG.Reparent] when the new parent is
	// the node itself or one of its hierarchical descendants.
	ErrHierarchyCycle = errors.New("parent would create a hierarchy cycle")

	// ErrInvalidEdgeEndpoint is returned by [DAG.Validate] when an edge
	// references a node that doesn't exist. This indicates a rewrite bug.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrInvalidParent is returned by [DAG.Validate] when a node's parent
	// does not exist.
	ErrInvalidParent = errors.New("invalid parent")
)

// Metadata stores arbitrary pass-through attributes attached to nodes.
// Metadata maps are never nil once a node is stored.
type Metadata map[string]any

// DAG is the graph store: the current snapshot of nodes, edges and the
// parent/child hierarchy used for grouping.
//
// Despite the name, the store does not reject cycles in the edge relation;
// the compiler produces acyclic graphs and the engine never adds back-edges.
// The hierarchy (Parent links) is always a forest.
//
// The zero value is not usable - use New. DAG is not safe for concurrent use;
// the engine owns it exclusively and hands clones to other goroutines.
type DAG struct {
	nodes    map[string]*Node
	order    []string // node IDs in insertion order
	edges    []*Edge
	edgeByID map[string]*Edge
	outgoing map[string][]*Edge
	incoming map[string][]*Edge
	children map[string][]string // parent ID -> child IDs ("" is the root)
}

// New creates an empty graph store.
func New() *DAG {
	return &DAG{
		nodes:    make(map[string]*Node),
		edgeByID: make(map[string]*Edge),
		outgoing: make(map[string][]*Edge),
		incoming: make(map[string][]*Edge),
		children: make(map[string][]string),
	}
}

// Load replaces the whole snapshot with the given nodes and edges.
//
// Load is atomic: the new snapshot is built on a staging graph and swapped
// in only if every node and edge was accepted, so readers never observe a
// half-loaded graph. On error the previous snapshot is left untouched.
//
// An empty node list is a no-op: the compiler signals "nothing selected"
// that way, and the current view must be kept.
func (d *DAG) Load(nodes []Node, edges []Edge) error {
	if len(nodes) == 0 {
		return nil
	}

	staging := New()
	// Parents are attached after all nodes exist, so input order does not matter.
	for _, n := range nodes {
		n.Parent = ""
		if err := staging.AddNode(n); err != nil {
			return fmt.Errorf("add node %s: %w", n.ID, err)
		}
	}
	for _, n := range nodes {
		if n.Parent == "" {
			continue
		}
		if err := staging.Reparent(n.ID, n.Parent); err != nil {
			return fmt.Errorf("reparent %s: %w", n.ID, err)
		}
	}
	for _, e := range edges {
		if err := staging.AddEdge(e); err != nil {
			return fmt.Errorf("add edge %s: %w", e.ID, err)
		}
	}

	d.Replace(staging)
	return nil
}

// Replace swaps the contents of other into d. other must not be used afterwards.
func (d *DAG) Replace(other *DAG) {
	*d = *other
}

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the ID is empty, ErrDuplicateNodeID if the ID
// is taken, or ErrUnknownNode if Parent is set but does not exist.
// Meta is initialized to an empty map if nil.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	if n.Parent != "" {
		if _, ok := d.nodes[n.Parent]; !ok {
			return fmt.Errorf("%w: parent %s", ErrUnknownNode, n.Parent)
		}
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	node := &n
	d.nodes[node.ID] = node
	d.order = append(d.order, node.ID)
	d.children[node.Parent] = append(d.children[node.Parent], node.ID)
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrInvalidEdgeID, ErrDuplicateEdgeID, ErrUnknownSourceNode or
// ErrUnknownTargetNode. Parallel edges with distinct IDs are allowed; use
// HasEdge to avoid them.
func (d *DAG) AddEdge(e Edge) error {
	if e.ID == "" {
		return ErrInvalidEdgeID
	}
	if _, exists := d.edgeByID[e.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEdgeID, e.ID)
	}
	if _, ok := d.nodes[e.From]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSourceNode, e.From)
	}
	if _, ok := d.nodes[e.To]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTargetNode, e.To)
	}
	edge := &e
	d.edges = append(d.edges, edge)
	d.edgeByID[edge.ID] = edge
	d.outgoing[edge.From] = append(d.outgoing[edge.From], edge)
	d.incoming[edge.To] = append(d.incoming[edge.To], edge)
	return nil
}

// HasEdge reports whether at least one edge from→to exists.
func (d *DAG) HasEdge(from, to string) bool {
	for _, e := range d.outgoing[from] {
		if e.To == to {
			return true
		}
	}
	return false
}

// RemoveEdge removes the edge with the given ID. Missing edges are ignored.
func (d *DAG) RemoveEdge(id string) {
	e, ok := d.edgeByID[id]
	if !ok {
		return
	}
	delete(d.edgeByID, id)
	d.edges = slices.DeleteFunc(d.edges, func(x *Edge) bool { return x == e })
	d.outgoing[e.From] = slices.DeleteFunc(d.outgoing[e.From], func(x *Edge) bool { return x == e })
	d.incoming[e.To] = slices.DeleteFunc(d.incoming[e.To], func(x *Edge) bool { return x == e })
}

// RemoveNode deletes a node and every edge touching it.
// Children of the removed node move to the root. Missing nodes are ignored.
func (d *DAG) RemoveNode(id string) {
	n, ok := d.nodes[id]
	if !ok {
		return
	}

	for _, e := range slices.Clone(d.outgoing[id]) {
		d.RemoveEdge(e.ID)
	}
	for _, e := range slices.Clone(d.incoming[id]) {
		d.RemoveEdge(e.ID)
	}
	delete(d.outgoing, id)
	delete(d.incoming, id)

	for _, c := range d.children[id] {
		d.nodes[c].Parent = ""
		d.children[""] = append(d.children[""], c)
	}
	delete(d.children, id)
	d.children[n.Parent] = slices.DeleteFunc(d.children[n.Parent], func(s string) bool { return s == id })

	delete(d.nodes, id)
	d.order = slices.DeleteFunc(d.order, func(s string) bool { return s == id })
}

// Reparent moves a node under a new hierarchical parent ("" for the root).
// Edges are untouched. Returns ErrUnknownNode if either ID is missing and
// ErrHierarchyCycle if parent is the node itself or one of its descendants.
func (d *DAG) Reparent(id, parent string) error {
	n, ok := d.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if parent != "" {
		if _, ok := d.nodes[parent]; !ok {
			return fmt.Errorf("%w: parent %s", ErrUnknownNode, parent)
		}
		for p := parent; p != ""; p = d.nodes[p].Parent {
			if p == id {
				return fmt.Errorf("%w: %s under %s", ErrHierarchyCycle, id, parent)
			}
		}
	}
	if n.Parent == parent {
		return nil
	}

	d.children[n.Parent] = slices.DeleteFunc(d.children[n.Parent], func(s string) bool { return s == id })
	n.Parent = parent
	d.children[parent] = append(d.children[parent], id)
	return nil
}

// SetFlag sets or clears a flag on a node. It is a no-op if the node no
// longer exists, since flags can arrive after a reload replaced the snapshot.
func (d *DAG) SetFlag(id string, f Flags, on bool) {
	if n, ok := d.nodes[id]; ok {
		n.Flags = n.Flags.With(f, on)
	}
}

// SetEdgeFlag sets or clears a flag on an edge. Missing edges are ignored.
func (d *DAG) SetEdgeFlag(id string, f Flags, on bool) {
	if e, ok := d.edgeByID[id]; ok {
		e.Flags = e.Flags.With(f, on)
	}
}

// ClearFlag clears a flag on every node and edge.
func (d *DAG) ClearFlag(f Flags) {
	for _, n := range d.nodes {
		n.Flags = n.Flags.With(f, false)
	}
	for _, e := range d.edges {
		e.Flags = e.Flags.With(f, false)
	}
}

// Node returns the node with the given ID and true, or nil and false.
// The returned pointer refers to the stored node; use Reparent rather than
// assigning Parent directly.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Edge returns the edge with the given ID and true, or nil and false.
func (d *DAG) Edge(id string) (*Edge, bool) {
	e, ok := d.edgeByID[id]
	return e, ok
}

// Nodes returns all nodes in insertion order. The pointers refer to the
// stored nodes.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, len(d.order))
	for i, id := range d.order {
		nodes[i] = d.nodes[id]
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
// Modifications to the returned values do not affect the graph.
func (d *DAG) Edges() []Edge {
	out := make([]Edge, len(d.edges))
	for i, e := range d.edges {
		out[i] = *e
	}
	return out
}

// OutEdges returns copies of the edges leaving the node.
func (d *DAG) OutEdges(id string) []Edge { return derefEdges(d.outgoing[id]) }

// InEdges returns copies of the edges entering the node.
func (d *DAG) InEdges(id string) []Edge { return derefEdges(d.incoming[id]) }

// Successors returns the IDs of nodes this node has edges to, without duplicates.
func (d *DAG) Successors(id string) []string {
	var out []string
	for _, e := range d.outgoing[id] {
		if !slices.Contains(out, e.To) {
			out = append(out, e.To)
		}
	}
	return out
}

// Predecessors returns the IDs of nodes with edges to this node, without duplicates.
func (d *DAG) Predecessors(id string) []string {
	var out []string
	for _, e := range d.incoming[id] {
		if !slices.Contains(out, e.From) {
			out = append(out, e.From)
		}
	}
	return out
}

// Children returns the IDs of the node's direct hierarchical children.
// Pass "" for the root level. The slice must not be modified.
func (d *DAG) Children(id string) []string { return d.children[id] }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Clone returns a deep copy of the graph. Meta maps are copied shallowly.
func (d *DAG) Clone() *DAG {
	c := New()
	for _, id := range d.order {
		n := *d.nodes[id]
		n.Meta = copyMeta(n.Meta)
		c.nodes[id] = &n
		c.order = append(c.order, id)
	}
	for parent, kids := range d.children {
		c.children[parent] = slices.Clone(kids)
	}
	for _, e := range d.edges {
		edge := *e
		ptr := &edge
		c.edges = append(c.edges, ptr)
		c.edgeByID[ptr.ID] = ptr
		c.outgoing[ptr.From] = append(c.outgoing[ptr.From], ptr)
		c.incoming[ptr.To] = append(c.incoming[ptr.To], ptr)
	}
	return c
}

// Validate checks graph integrity and returns nil if valid:
//
//  1. Every edge connects existing nodes
//  2. Every parent reference points at an existing node
//
// A failure indicates a bug in whatever mutated the graph.
func (d *DAG) Validate() error {
	for _, e := range d.edges {
		_, okS := d.nodes[e.From]
		_, okD := d.nodes[e.To]
		if !okS || !okD {
			return fmt.Errorf("%w: %s (%s→%s)", ErrInvalidEdgeEndpoint, e.ID, e.From, e.To)
		}
	}
	for _, n := range d.nodes {
		if n.Parent == "" {
			continue
		}
		if _, ok := d.nodes[n.Parent]; !ok {
			return fmt.Errorf("%w: %s under %s", ErrInvalidParent, n.ID, n.Parent)
		}
	}
	return nil
}

func derefEdges(edges []*Edge) []Edge {
	if len(edges) == 0 {
		return nil
	}
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = *e
	}
	return out
}

func copyMeta(m Metadata) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
