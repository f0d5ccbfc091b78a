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

import (
	"fmt"
	"strings"
)

// GraphViz renders a subset of the build graph reachable from a target as
// a GraphViz .dot file on stdout, for the -t graphviz tool.
type GraphViz struct {
	dyndepLoader *DyndepLoader

	visitedNodes map[*Node]struct{}
	visitedEdges map[*Edge]struct{}
}

// NewGraphViz binds a GraphViz renderer to state's graph.
func NewGraphViz(state *State, disk DiskInterface) *GraphViz {
	return &GraphViz{
		dyndepLoader: NewDyndepLoader(state, disk),
		visitedNodes: map[*Node]struct{}{},
		visitedEdges: map[*Edge]struct{}{},
	}
}

// AddTarget walks node and its producing edge's inputs, emitting one dot
// node/edge statement per new node/edge it encounters.
func (g *GraphViz) AddTarget(node *Node) {
	if _, ok := g.visitedNodes[node]; ok {
		return
	}
	pathstr := strings.ReplaceAll(node.Path(), "\\", "/")
	fmt.Printf("\"%p\" [label=\"%s\"]\n", node, pathstr)
	g.visitedNodes[node] = struct{}{}

	edge := node.InEdge
	if edge == nil {
		// Leaf node.
		return
	}

	if _, ok := g.visitedEdges[edge]; ok {
		return
	}
	g.visitedEdges[edge] = struct{}{}

	if edge.Dyndep != nil && edge.Dyndep.DyndepPending {
		ddf := DyndepFile{}
		if err := g.dyndepLoader.LoadDyndeps(edge.Dyndep, &ddf); err != nil {
			Warning("%s", err)
		}
	}

	if len(edge.Inputs) == 1 && len(edge.Outputs) == 1 {
		// Can draw simply. Note the extra space before the label text --
		// cosmetic, graphviz renders it tighter otherwise.
		fmt.Printf("\"%p\" -> \"%p\" [label=\" %s\"]\n", edge.Inputs[0], edge.Outputs[0], edge.Rule.Name)
	} else {
		fmt.Printf("\"%p\" [label=\"%s\", shape=ellipse]\n", edge, edge.Rule.Name)
		for _, out := range edge.Outputs {
			fmt.Printf("\"%p\" -> \"%p\"\n", edge, out)
		}
		for i, in := range edge.Inputs {
			orderOnly := ""
			if edge.IsOrderOnly(i) {
				orderOnly = " style=dotted"
			}
			fmt.Printf("\"%p\" -> \"%p\" [arrowhead=none%s]\n", in, edge, orderOnly)
		}
	}

	for _, in := range edge.Inputs {
		g.AddTarget(in)
	}
}

// Start emits the digraph preamble.
func (g *GraphViz) Start() {
	fmt.Print("digraph anvil {\n")
	fmt.Print("rankdir=\"LR\"\n")
	fmt.Print("node [fontsize=10, shape=box, height=0.25]\n")
	fmt.Print("edge [fontsize=10]\n")
}

// Finish closes the digraph block.
func (g *GraphViz) Finish() {
	fmt.Print("}\n")
}
