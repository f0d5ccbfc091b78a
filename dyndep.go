// Copyright 2015 Google Inc. All Rights Reserved.
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

// Dyndeps holds the dynamically-discovered dependency information for one
// edge, as loaded from its dyndep file.
type Dyndeps struct {
	Used            bool
	Restat          bool
	ImplicitInputs  []*Node
	ImplicitOutputs []*Node
}

// DyndepFile maps an edge to the dynamically-discovered information loaded
// for it from a single dyndep file.
type DyndepFile map[*Edge]*Dyndeps

// DyndepLoader loads dynamically discovered dependencies, as referenced via
// the "dyndep" binding in build statements.
type DyndepLoader struct {
	state *State
	disk  DiskInterface
}

// NewDyndepLoader returns a loader that resolves node paths against state
// and stats dyndep files through disk.
func NewDyndepLoader(state *State, disk DiskInterface) *DyndepLoader {
	return &DyndepLoader{state: state, disk: disk}
}

// LoadDyndeps loads the dyndep file named by node and updates every edge
// that references it with the newly discovered inputs and outputs. If ddf is
// non-nil the per-edge information loaded from the file is also recorded
// into it, for a caller that wants to inspect it afterward.
func (d *DyndepLoader) LoadDyndeps(node *Node, ddf *DyndepFile) error {
	node.DyndepPending = false

	local := ddf
	if local == nil {
		f := DyndepFile{}
		local = &f
	}

	EXPLAIN("loading dyndep file '%s'", node.Path())
	if err := d.loadDyndepFile(node, local); err != nil {
		return err
	}

	for _, edge := range node.OutEdges {
		if edge.Dyndep != node {
			continue
		}

		ddi, ok := (*local)[edge]
		if !ok {
			return fmt.Errorf("%q not mentioned in its dyndep file %q", edge.Outputs[0].Path(), node.Path())
		}

		ddi.Used = true
		if err := d.updateEdge(edge, ddi); err != nil {
			return err
		}
	}

	for edge, ddi := range *local {
		if !ddi.Used {
			return fmt.Errorf("dyndep file %q mentions output %q whose build statement does not have a dyndep binding for the file", node.Path(), edge.Outputs[0].Path())
		}
	}

	return nil
}

// updateEdge merges the dyndep-discovered bindings, outputs and inputs of
// dyndeps into edge.
func (d *DyndepLoader) updateEdge(edge *Edge, dyndeps *Dyndeps) error {
	// The edge already has its own binding scope, because it has a "dyndep"
	// binding.
	if dyndeps.Restat {
		edge.Env.AddBinding("restat", "1")
	}

	edge.Outputs = append(edge.Outputs, dyndeps.ImplicitOutputs...)
	edge.ImplicitOuts += len(dyndeps.ImplicitOutputs)

	for _, out := range dyndeps.ImplicitOutputs {
		if oldInEdge := out.InEdge; oldInEdge != nil {
			// This node already has an edge producing it. Fail unless the old
			// edge was synthesized by the deps loader, in which case replace it
			// with the now-known real producer.
			if !oldInEdge.GeneratedByDepLoader {
				return fmt.Errorf("multiple rules generate %s", out.Path())
			}
			oldInEdge.Outputs = nil
		}
		out.InEdge = edge
	}

	insertAt := len(edge.Inputs) - edge.OrderOnlyDeps
	tail := append([]*Node{}, edge.Inputs[insertAt:]...)
	edge.Inputs = append(edge.Inputs[:insertAt:insertAt], dyndeps.ImplicitInputs...)
	edge.Inputs = append(edge.Inputs, tail...)
	edge.ImplicitDeps += len(dyndeps.ImplicitInputs)

	for _, in := range dyndeps.ImplicitInputs {
		in.AddOutEdge(edge)
	}

	return nil
}

// loadDyndepFile parses file's path and records its contents into ddf.
func (d *DyndepLoader) loadDyndepFile(file *Node, ddf *DyndepFile) error {
	parser := NewDyndepParser(d.state, d.disk, ddf)
	return parser.Load(file.Path())
}
