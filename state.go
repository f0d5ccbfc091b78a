// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package anvil

import "fmt"

// kDefaultPool is the pool new edges land in unless a "pool" binding says
// otherwise. Depth 0 means unbounded: the only caps are -j and jobserver.
var kDefaultPool = NewPool("", 0)

// kConsolePool is the well-known pool name "console", depth 1, that lets an
// edge inherit the parent's stdio directly instead of being captured.
var kConsolePool = NewPool("console", 1)

// kPhonyRule is the built-in rule every manifest's bindings can see without
// declaring it; phony edges have no command and are never themselves dirty.
var kPhonyRule = NewRule("phony")

// State is the top-level container threaded through parsing and the build
// driver: every node keyed by canonical path, every edge, the pool and rule
// tables, and the global bindings scope. Never a process-wide singleton.
type State struct {
	Paths    map[string]*Node
	Pools    map[string]*Pool
	Edges    []*Edge
	Bindings *BindingEnv
	Defaults []*Node
}

// NewState returns a State with the default pools and the phony rule wired
// in, ready to be handed to a manifest parser.
func NewState() *State {
	s := &State{
		Paths:    map[string]*Node{},
		Pools:    map[string]*Pool{},
		Bindings: NewBindingEnv(nil),
	}
	s.Bindings.AddRule(kPhonyRule)
	s.AddPool(kDefaultPool)
	s.AddPool(kConsolePool)
	return s
}

// AddPool registers a pool; the name must not already be taken.
func (s *State) AddPool(pool *Pool) {
	if _, ok := s.Pools[pool.Name]; ok {
		panic("anvil: duplicate pool " + pool.Name)
	}
	s.Pools[pool.Name] = pool
}

// LookupPool returns the named pool, or nil if there is none.
func (s *State) LookupPool(name string) *Pool {
	return s.Pools[name]
}

// addEdge appends a new edge invoking rule to the graph and returns it.
func (s *State) addEdge(rule *Rule) *Edge {
	edge := &Edge{
		Rule: rule,
		Pool: kDefaultPool,
		Env:  s.Bindings,
		id:   len(s.Edges),
	}
	s.Edges = append(s.Edges, edge)
	return edge
}

// GetNode returns the Node for path, creating it (with the given slash-bit
// mask) if this is the first time path has been seen.
func (s *State) GetNode(path string, slashBits uint64) *Node {
	if node := s.lookupNode(path); node != nil {
		return node
	}
	node := NewNode(path, slashBits)
	s.Paths[path] = node
	return node
}

func (s *State) lookupNode(path string) *Node {
	return s.Paths[path]
}

// SpellcheckNode returns the closest known path to path, for "did you mean"
// diagnostics, or nil if nothing is within editing distance 3.
func (s *State) SpellcheckNode(path string) *Node {
	const allowReplacements = true
	const maxValidEditDistance = 3

	minDistance := maxValidEditDistance + 1
	var result *Node
	for candidate, node := range s.Paths {
		distance := editDistance(candidate, path, allowReplacements, maxValidEditDistance)
		if distance < minDistance && node != nil {
			minDistance = distance
			result = node
		}
	}
	return result
}

// addIn records path as an input of edge, creating the node if necessary.
func (s *State) addIn(edge *Edge, path string, slashBits uint64) {
	node := s.GetNode(path, slashBits)
	edge.Inputs = append(edge.Inputs, node)
	node.OutEdges = append(node.OutEdges, edge)
}

// addOut records path as an output of edge. Returns false if some other
// edge already produces that path.
func (s *State) addOut(edge *Edge, path string, slashBits uint64) bool {
	node := s.GetNode(path, slashBits)
	if node.InEdge != nil {
		return false
	}
	edge.Outputs = append(edge.Outputs, node)
	node.InEdge = edge
	return true
}

// addValidation records path as a validation output of edge: an edge that
// must run whenever edge runs, without feeding edge's own inputs.
func (s *State) addValidation(edge *Edge, path string, slashBits uint64) {
	node := s.GetNode(path, slashBits)
	edge.Validations = append(edge.Validations, node)
	node.ValidationOutEdges = append(node.ValidationOutEdges, edge)
}

// addDefault adds path to the default target list.
func (s *State) addDefault(path string) error {
	node := s.lookupNode(path)
	if node == nil {
		return fmt.Errorf("unknown target %q", path)
	}
	s.Defaults = append(s.Defaults, node)
	return nil
}

// RootNodes returns every node with no out-edges: the natural build targets
// when none are named explicitly.
func (s *State) RootNodes() ([]*Node, error) {
	var roots []*Node
	for _, e := range s.Edges {
		for _, out := range e.Outputs {
			if len(out.OutEdges) == 0 {
				roots = append(roots, out)
			}
		}
	}
	if len(s.Edges) != 0 && len(roots) == 0 {
		return nil, fmt.Errorf("could not determine root nodes of build graph")
	}
	return roots, nil
}

// DefaultNodes returns the manifest's declared defaults, or the root nodes
// if none were declared.
func (s *State) DefaultNodes() ([]*Node, error) {
	if len(s.Defaults) != 0 {
		return s.Defaults, nil
	}
	return s.RootNodes()
}

// Reset restores every node and edge to the state before any disk stat or
// dirty computation happened, keeping the graph itself intact. Used between
// incremental build invocations within the same process (e.g. tests).
func (s *State) Reset() {
	for _, node := range s.Paths {
		node.ResetState()
	}
	for _, e := range s.Edges {
		e.OutputsReady = false
		e.DepsLoaded = false
		e.Mark = VisitNone
	}
}

// Dump prints every node's status and every pool's contents; used by -d
// stats / -t list style debugging commands.
func (s *State) Dump() {
	for path, node := range s.Paths {
		status := "unknown"
		if node.StatusKnown() {
			if node.Dirty {
				status = "dirty"
			} else {
				status = "clean"
			}
		}
		printf("%s %s [id:%d]\n", path, status, node.id)
	}
	if len(s.Pools) != 0 {
		printf("resource_pools:\n")
		for _, pool := range s.Pools {
			if pool.Name != "" {
				pool.Dump()
			}
		}
	}
}
