// Package snap builds SNAP Graph Processing Framework (GPF) graphs and runs
// them with the gpt command-line tool.
//
// Operators are chained through opaque Product handles. Nothing is computed
// until the graph, terminated by a Write node, is handed to an Engine.
package snap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

var (
	// ErrForeignProduct is returned when a product handle belongs to a different graph.
	ErrForeignProduct = errors.New("product belongs to another graph")

	// ErrNoSources is returned when an operator is applied without source products.
	ErrNoSources = errors.New("operator requires at least one source product")

	// ErrDuplicateSource is returned when the same product feeds an operator twice.
	ErrDuplicateSource = errors.New("product used more than once as a source")

	// ErrAlreadyWritten is returned when nodes are added after the Write node.
	ErrAlreadyWritten = errors.New("graph already has a write target")

	// ErrNoOutput is returned when a graph without a Write node is executed.
	ErrNoOutput = errors.New("graph has no write target")

	// ErrEngine is returned when the processing engine fails.
	ErrEngine = errors.New("processing engine failed")
)

// Operator names used by the preprocessing chain.
const (
	OpRead                = "Read"
	OpWrite               = "Write"
	OpThermalNoiseRemoval = "ThermalNoiseRemoval"
	OpApplyOrbitFile      = "Apply-Orbit-File"
	OpCalibration         = "Calibration"
	OpSliceAssembly       = "SliceAssembly"
	OpSpeckleFilter       = "Speckle-Filter"
	OpTerrainCorrection   = "Terrain-Correction"
	OpLinearToFromdB      = "LinearToFromdB"
	OpSubset              = "Subset"
)

// Params is the parameter set of a single operator invocation.
type Params map[string]any

// Product is an opaque handle to a node of a Graph.
type Product struct {
	id    string
	graph *Graph
}

// ID returns the node id the handle refers to.
func (p *Product) ID() string {
	return p.id
}

// Node is a read-only view of a graph node.
type Node struct {
	ID       string
	Operator string
	Sources  []string
	Params   Params
}

type node struct {
	Node
	seq int
}

// Graph is a directed acyclic graph of operator invocations.
type Graph struct {
	dag     graph.Graph[string, *node]
	seq     map[string]int
	counts  map[string]int
	written bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		dag:    graph.New(func(n *node) string { return n.ID }, graph.Directed(), graph.Acyclic(), graph.PreventCycles()),
		seq:    make(map[string]int),
		counts: make(map[string]int),
	}
}

// Read adds a product reader for file.
func (g *Graph) Read(file string) (*Product, error) {
	return g.add(OpRead, Params{"file": file, "formatName": "SENTINEL-1"})
}

// Apply adds an operator fed by sources and returns the handle of its output.
func (g *Graph) Apply(operator string, params Params, sources ...*Product) (*Product, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%s: %w", operator, ErrNoSources)
	}
	return g.add(operator, params, sources...)
}

// Write terminates the graph by writing product to file in the given format.
func (g *Graph) Write(product *Product, file, format string) error {
	if product == nil {
		return fmt.Errorf("%s: %w", OpWrite, ErrNoSources)
	}
	if _, err := g.add(OpWrite, Params{"file": file, "formatName": format}, product); err != nil {
		return err
	}
	g.written = true
	return nil
}

// Written reports whether the graph has a Write node.
func (g *Graph) Written() bool {
	return g.written
}

func (g *Graph) add(operator string, params Params, sources ...*Product) (*Product, error) {
	if g.written {
		return nil, fmt.Errorf("%s: %w", operator, ErrAlreadyWritten)
	}
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		if src == nil || src.graph != g {
			return nil, fmt.Errorf("%s: %w", operator, ErrForeignProduct)
		}
		if seen[src.id] {
			return nil, fmt.Errorf("%s: %w: %s", operator, ErrDuplicateSource, src.id)
		}
		seen[src.id] = true
	}

	id := operator
	if n := g.counts[operator] + 1; n > 1 {
		id = fmt.Sprintf("%s(%d)", operator, n)
	}

	n := &node{
		Node: Node{
			ID:       id,
			Operator: operator,
			Sources:  make([]string, 0, len(sources)),
			Params:   params,
		},
		seq: len(g.seq),
	}
	for _, src := range sources {
		n.Sources = append(n.Sources, src.id)
	}

	if err := g.dag.AddVertex(n); err != nil {
		return nil, fmt.Errorf("failed to add node %s: %w", id, err)
	}

	for i, src := range n.Sources {
		if err := g.dag.AddEdge(src, id); err != nil {
			g.remove(id, n.Sources[:i])
			return nil, fmt.Errorf("failed to link %s to %s: %w", src, id, err)
		}
	}

	// committed only once the node is fully linked
	g.counts[operator]++
	g.seq[id] = n.seq

	return &Product{id: id, graph: g}, nil
}

// remove drops a partially linked node together with the edges already added from linked.
func (g *Graph) remove(id string, linked []string) {
	for _, src := range linked {
		_ = g.dag.RemoveEdge(src, id)
	}
	_ = g.dag.RemoveVertex(id)
}

// Nodes returns the graph nodes in the order they were added.
func (g *Graph) Nodes() ([]Node, error) {
	order, err := graph.TopologicalSort(g.dag)
	if err != nil {
		return nil, fmt.Errorf("failed to sort graph: %w", err)
	}
	// insertion order is itself topological since sources must exist first
	sort.Slice(order, func(i, j int) bool { return g.seq[order[i]] < g.seq[order[j]] })

	nodes := make([]Node, 0, len(order))
	for _, id := range order {
		n, err := g.dag.Vertex(id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up node %s: %w", id, err)
		}
		nodes = append(nodes, n.Node)
	}
	return nodes, nil
}

// Operators returns the distinct operators of the graph in first-use order,
// excluding Read and Write.
func (g *Graph) Operators() []string {
	ids := make([]string, 0, len(g.seq))
	for id := range g.seq {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return g.seq[ids[i]] < g.seq[ids[j]] })

	seen := make(map[string]bool)
	ops := make([]string, 0, len(g.counts))
	for _, id := range ids {
		n, err := g.dag.Vertex(id)
		if err != nil || seen[n.Operator] || n.Operator == OpRead || n.Operator == OpWrite {
			continue
		}
		seen[n.Operator] = true
		ops = append(ops, n.Operator)
	}
	return ops
}
