// Copyright 2019 Google Inc. All Rights Reserved.
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

	"github.com/pkg/errors"
	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// MissingDependencyScannerDelegate is notified of each missing-dependency
// finding the -t missingdeps scan makes.
type MissingDependencyScannerDelegate interface {
	OnMissingDep(node *Node, path string, generator *Rule)
}

// MissingDependencyPrinter is the default delegate: it prints a
// human-readable line per finding, including a character-level diff between
// the node's declared inputs (joined by newlines) and the depfile-discovered
// path so a reader can spot why the declared set missed it.
type MissingDependencyPrinter struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewMissingDependencyPrinter returns a ready-to-use delegate.
func NewMissingDependencyPrinter() *MissingDependencyPrinter {
	return &MissingDependencyPrinter{dmp: diffmatchpatch.New()}
}

// OnMissingDep prints a finding: node uses path, which is generated by
// generator but never declared as one of node's explicit/implicit inputs.
func (m *MissingDependencyPrinter) OnMissingDep(node *Node, path string, generator *Rule) {
	declared := declaredInputPaths(node)
	diffs := m.dmp.DiffMain(strings.Join(declared, "\n"), path, false)
	fmt.Printf("Missing dep: %s uses %s (generated by %s)\n", node.Path(), path, generator.Name)
	if delta := m.dmp.DiffToDelta(diffs); delta != "" {
		fmt.Printf("  closest declared input differs: %s\n", delta)
	}
}

func declaredInputPaths(node *Node) []string {
	edge := node.InEdge
	if edge == nil {
		return nil
	}
	paths := make([]string, 0, len(edge.Inputs))
	for _, in := range edge.Inputs {
		paths = append(paths, in.Path())
	}
	return paths
}

// nodeStoringImplicitDepLoader is an ImplicitDepLoader variant that records
// the depfile-discovered nodes into depNodes instead of mutating the edge
// and deps log the way the base loader's LoadDeps does.
type nodeStoringImplicitDepLoader struct {
	state    *State
	disk     DiskInterface
	opts     DepfileParserOptions
	depNodes *[]*Node
}

func newNodeStoringImplicitDepLoader(state *State, disk DiskInterface, opts DepfileParserOptions, depNodes *[]*Node) *nodeStoringImplicitDepLoader {
	return &nodeStoringImplicitDepLoader{state: state, disk: disk, opts: opts, depNodes: depNodes}
}

// loadDepfileDeps parses edge's depfile, if it has one, and appends every
// discovered path as a Node into l.depNodes without touching edge itself.
func (l *nodeStoringImplicitDepLoader) loadDepfileDeps(edge *Edge) error {
	depfile := edge.GetUnescapedDepfile()
	if depfile == "" {
		return nil
	}
	content, status, err := l.disk.ReadFile(depfile)
	if status != ReadOkay {
		if status == ReadNotFound {
			return nil
		}
		return errors.Wrapf(err, "loading depfile %q", depfile)
	}
	parser := NewDepfileParser(l.opts)
	if err := parser.Parse(append([]byte(content), 0)); err != nil {
		return errors.Wrapf(err, "parsing depfile %q", depfile)
	}
	for _, in := range parser.Ins() {
		canon := CanonicalizePath(in)
		*l.depNodes = append(*l.depNodes, l.state.GetNode(canon, 0))
	}
	return nil
}

// MissingDependencyScanner walks the build graph looking for edges whose
// depfile/deps-log discovered inputs include a node produced by some other
// edge that isn't reachable from the consuming edge through any declared
// (non-depfile) dependency path -- a sign the manifest's declared deps are
// incomplete and the build only worked by accident of ordering.
type MissingDependencyScanner struct {
	delegate      MissingDependencyScannerDelegate
	depsLog       *DepsLog
	state         *State
	disk          DiskInterface
	seen          map[*Node]struct{}
	nodesMissing  map[*Node]struct{}
	generated     map[*Node]struct{}
	generatorRule map[*Rule]struct{}
	missingCount  int
	adjacency     map[*Edge]map[*Edge]bool
}

// NewMissingDependencyScanner builds a scanner reporting to delegate.
func NewMissingDependencyScanner(delegate MissingDependencyScannerDelegate, depsLog *DepsLog, state *State, disk DiskInterface) *MissingDependencyScanner {
	return &MissingDependencyScanner{
		delegate:      delegate,
		depsLog:       depsLog,
		state:         state,
		disk:          disk,
		seen:          map[*Node]struct{}{},
		nodesMissing:  map[*Node]struct{}{},
		generated:     map[*Node]struct{}{},
		generatorRule: map[*Rule]struct{}{},
		adjacency:     map[*Edge]map[*Edge]bool{},
	}
}

// HadMissingDeps reports whether the scan found any missing dependency.
func (m *MissingDependencyScanner) HadMissingDeps() bool {
	return len(m.nodesMissing) > 0
}

// ProcessNode recursively scans node's producing edge and its inputs.
func (m *MissingDependencyScanner) ProcessNode(node *Node) error {
	if node == nil {
		return nil
	}
	edge := node.InEdge
	if edge == nil {
		return nil
	}
	if _, ok := m.seen[node]; ok {
		return nil
	}
	m.seen[node] = struct{}{}

	for _, in := range edge.Inputs {
		if err := m.ProcessNode(in); err != nil {
			return err
		}
	}

	if edge.GetBinding("deps") != "" {
		if deps := m.depsLog.GetDeps(node); deps != nil {
			m.processNodeDeps(node, deps.Nodes)
		}
		return nil
	}

	var depNodes []*Node
	loader := newNodeStoringImplicitDepLoader(m.state, m.disk, DepfileParserOptions{}, &depNodes)
	if err := loader.loadDepfileDeps(edge); err != nil {
		return err
	}
	if len(depNodes) > 0 {
		m.processNodeDeps(node, depNodes)
	}
	return nil
}

func (m *MissingDependencyScanner) processNodeDeps(node *Node, depNodes []*Node) {
	edge := node.InEdge
	deplogEdges := map[*Edge]struct{}{}
	for _, depNode := range depNodes {
		// A dep on build.ninja means "rebuild whenever the build is
		// reconfigured"; the rest of the build implicitly depends on the
		// whole reconfiguration, so it's not a real missing-dep finding.
		if depNode.Path() == "build.ninja" {
			return
		}
		if de := depNode.InEdge; de != nil {
			deplogEdges[de] = struct{}{}
		}
	}

	var missingEdges []*Edge
	for de := range deplogEdges {
		if !m.pathExistsBetween(de, edge) {
			missingEdges = append(missingEdges, de)
		}
	}
	if len(missingEdges) == 0 {
		return
	}

	missingRuleNames := map[string]struct{}{}
	for _, ne := range missingEdges {
		for _, depNode := range depNodes {
			if depNode.InEdge != ne {
				continue
			}
			m.generated[depNode] = struct{}{}
			m.generatorRule[ne.Rule] = struct{}{}
			missingRuleNames[ne.Rule.Name] = struct{}{}
			m.delegate.OnMissingDep(node, depNode.Path(), ne.Rule)
		}
	}
	m.missingCount += len(missingRuleNames)
	m.nodesMissing[node] = struct{}{}
}

// PrintStats reports a summary of the scan to stdout.
func (m *MissingDependencyScanner) PrintStats() {
	fmt.Printf("Processed %d nodes.\n", len(m.seen))
	if !m.HadMissingDeps() {
		fmt.Println("No missing dependencies on generated files found.")
		return
	}
	fmt.Printf("Error: There are %d missing dependency paths.\n", m.missingCount)
	fmt.Printf("%d targets had depfile dependencies on %d distinct generated inputs (from %d rules) without a non-depfile dep path to the generator.\n",
		len(m.nodesMissing), len(m.generated), len(m.generatorRule))
	fmt.Println("There might be build flakiness if any of the targets listed above are built alone, or not late enough, in a clean output directory.")
}

// pathExistsBetween reports whether to's input chain reaches from
// (memoized per from/to pair).
func (m *MissingDependencyScanner) pathExistsBetween(from, to *Edge) bool {
	inner, ok := m.adjacency[from]
	if ok {
		if found, ok := inner[to]; ok {
			return found
		}
	} else {
		inner = map[*Edge]bool{}
		m.adjacency[from] = inner
	}

	found := false
	for _, in := range to.Inputs {
		if e := in.InEdge; e != nil && (e == from || m.pathExistsBetween(from, e)) {
			found = true
			break
		}
	}
	inner[to] = found
	return found
}
