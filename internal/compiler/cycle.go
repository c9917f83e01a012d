package compiler

import (
	"fmt"
	"strings"
)

// CycleWarning represents a call cycle among a scenario's step groups.
//
// Unlike a generic rule system, a group body invokes its calls
// unconditionally: a cycle can never terminate at run time. Every detected
// cycle is therefore reported at level "error".
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["checkout", "retry", "checkout"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // Always "error" for group cycles
}

// AnalyzeCycles performs static cycle analysis on a scenario's step groups.
//
// The algorithm:
//  1. Build group → group call graph from the step library
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// Calls to step- and plain-kind steps are leaves and never form edges.
// A scenario whose groups form a DAG returns an empty list.
func AnalyzeCycles(s *Scenario) []CycleWarning {
	if s == nil {
		return []CycleWarning{}
	}

	graph := buildCallGraph(s)
	if len(graph) == 0 {
		return []CycleWarning{}
	}

	// Detect strongly connected components (cycles)
	sccs := tarjanSCC(graph)

	var warnings []CycleWarning
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	return warnings
}

// dependencyGraph maps group name → list of group names it calls.
type dependencyGraph map[string][]string

// buildCallGraph constructs the group call graph from the step library.
// Only group-to-group call references become edges; calls to undefined
// steps are dropped here and reported by Validate instead.
func buildCallGraph(s *Scenario) dependencyGraph {
	groups := make(map[string]bool)
	for _, def := range s.Steps {
		if def.Kind == KindGroup {
			groups[def.Name] = true
		}
	}
	if len(groups) == 0 {
		return dependencyGraph{}
	}

	graph := make(dependencyGraph)
	for _, def := range s.Steps {
		if def.Kind != KindGroup {
			continue
		}
		// Initialize with empty slice (ensures node exists in graph)
		if graph[def.Name] == nil {
			graph[def.Name] = []string{}
		}
		for _, call := range def.Calls {
			if groups[call] {
				graph[def.Name] = append(graph[def.Name], call)
			}
		}
	}

	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of group names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				// Successor w has not yet been visited; recurse on it
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				// Successor w is on stack and hence in the current SCC
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit all nodes
	for node := range graph {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// For self-loops, the path is [group, group].
// For multi-node cycles, the path shows a cycle traversal.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		// Self-loop
		group := scc[0]
		return CycleWarning{
			Path:    []string{group, group},
			Message: fmt.Sprintf("Self-calling step group detected: %s → %s", group, group),
			Level:   "error",
		}
	}

	// Multi-node cycle - reconstruct a cycle path
	path := reconstructCyclePath(scc, graph)

	pathStr := strings.Join(path, " → ")
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Step group call cycle detected: %s", pathStr),
		Level:   "error",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	// Build set of SCC members for fast lookup
	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	// Start at first node
	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	// Follow edges within SCC until we return to start
	for {
		visited[current] = true

		// Find next SCC member reachable from current
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			// No more unvisited neighbors in SCC
			break
		}

		path = append(path, next)

		if next == start {
			// Completed the cycle
			break
		}

		current = next
	}

	return path
}
