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

// existenceStatus tracks whether a Node's presence on disk has been
// checked yet, and if so, what was found.
type existenceStatus int

const (
	existenceStatusUnknown existenceStatus = iota
	existenceStatusMissing
	existenceStatusExists
)

// Node is a file participating in the graph: an input, an output, or both.
type Node struct {
	path      string
	slashBits uint64

	// mtime semantics: -1 hasn't been stat'd, 0 doesn't exist, >0 the
	// file's mtime or (for phony outputs) the latest mtime among its
	// dependencies.
	mtime TimeStamp
	exist existenceStatus

	Dirty         bool
	DyndepPending bool

	InEdge             *Edge
	OutEdges           []*Edge
	ValidationOutEdges []*Edge

	id int
}

// NewNode creates a Node for path with the given slash-bit mask, unstated.
func NewNode(path string, slashBits uint64) *Node {
	return &Node{path: path, slashBits: slashBits, mtime: -1, id: -1}
}

// Path returns the node's canonicalized path.
func (n *Node) Path() string { return n.path }

// ID returns the node's deps log id, or -1 if it has never been recorded
// to the deps log.
func (n *Node) ID() int { return n.id }

// SetID assigns the node's deps log id.
func (n *Node) SetID(id int) { n.id = id }

// StatIfNecessary stats the node if it hasn't been yet.
func (n *Node) StatIfNecessary(d DiskInterface) error {
	if n.StatusKnown() {
		return nil
	}
	return n.Stat(d)
}

// Stat stats the node unconditionally, updating mtime and exist.
func (n *Node) Stat(d DiskInterface) error {
	defer metricRecord("node stat")()
	mtime, err := d.Stat(n.path)
	if err != nil {
		return err
	}
	n.mtime = mtime
	if mtime != 0 {
		n.exist = existenceStatusExists
	} else {
		n.exist = existenceStatusMissing
	}
	return nil
}

// ResetState marks the node as not-yet-stat'd and not dirty.
func (n *Node) ResetState() {
	n.mtime = -1
	n.exist = existenceStatusUnknown
	n.Dirty = false
}

// MarkMissing marks the node as already-stat'd and missing.
func (n *Node) MarkMissing() {
	if n.mtime == -1 {
		n.mtime = 0
	}
	n.exist = existenceStatusMissing
}

// Exists reports whether the node is known to exist on disk.
func (n *Node) Exists() bool {
	return n.exist == existenceStatusExists
}

// StatusKnown reports whether the node has been stat'd.
func (n *Node) StatusKnown() bool {
	return n.exist != existenceStatusUnknown
}

// Mtime returns the node's recorded modification time.
func (n *Node) Mtime() TimeStamp { return n.mtime }

// MarkDirty marks the node out-of-date.
func (n *Node) MarkDirty() { n.Dirty = true }

// UpdatePhonyMtime propagates a dependency's mtime onto a phony output
// that doesn't exist on disk, so downstream freshness checks see it.
func (n *Node) UpdatePhonyMtime(mtime TimeStamp) {
	if !n.Exists() {
		if mtime > n.mtime {
			n.mtime = mtime
		}
	}
}

// AddOutEdge records edge as consuming this node as an input.
func (n *Node) AddOutEdge(edge *Edge) {
	n.OutEdges = append(n.OutEdges, edge)
}

// PathDecanonicalized returns Path with the slashes that canonicalization
// normalized to '/' restored to their original '\', per SlashBits.
func (n *Node) PathDecanonicalized() string {
	return pathDecanonicalized(n.path, n.slashBits)
}

func pathDecanonicalized(path string, slashBits uint64) string {
	if slashBits == 0 {
		return path
	}
	b := []byte(path)
	mask := uint64(1)
	for i := range b {
		if b[i] == '/' {
			if slashBits&mask != 0 {
				b[i] = '\\'
			}
			mask <<= 1
		}
	}
	return string(b)
}

// Dump prints debugging information about the node and its edges.
func (n *Node) Dump(prefix string) {
	status := "unknown"
	if n.StatusKnown() {
		if n.Exists() {
			status = "present"
		} else {
			status = "missing"
		}
	}
	printf("%s <%s 0x%p> mtime: %d, %s, (:%t), ", prefix, n.path, n, n.mtime, status, n.Dirty)
	if n.InEdge != nil {
		n.InEdge.Dump("in-edge: ")
	} else {
		printf("no in-edge\n")
	}
	printf(" out edges:\n")
	for _, e := range n.OutEdges {
		e.Dump(" +- ")
	}
}

// VisitMark is the cycle-detection state of an Edge during a RecomputeDirty
// walk.
type VisitMark int

const (
	VisitNone VisitMark = iota
	VisitInStack
	VisitDone
)

// Edge is a single rule invocation: a Rule plus the concrete inputs and
// outputs it binds on this build graph.
type Edge struct {
	Rule        *Rule
	Pool        *Pool
	Inputs      []*Node
	Outputs     []*Node
	Validations []*Node
	Dyndep      *Node
	Env         *BindingEnv
	Mark        VisitMark

	id int

	OutputsReady          bool
	DepsLoaded            bool
	DepsMissing           bool
	GeneratedByDepLoader  bool

	// Inputs are laid out as [explicit][implicit][order-only].
	ImplicitDeps  int
	OrderOnlyDeps int
	// Outputs are laid out as [explicit][implicit].
	ImplicitOuts int
}

// Weight returns the pool capacity an edge consumes; always 1 today.
func (e *Edge) Weight() int { return 1 }

// IsImplicit reports whether inputs[index] is an implicit (not order-only)
// dependency.
func (e *Edge) IsImplicit(index int) bool {
	return index >= len(e.Inputs)-e.OrderOnlyDeps-e.ImplicitDeps && !e.IsOrderOnly(index)
}

// IsOrderOnly reports whether inputs[index] is an order-only dependency.
func (e *Edge) IsOrderOnly(index int) bool {
	return index >= len(e.Inputs)-e.OrderOnlyDeps
}

// IsImplicitOut reports whether outputs[index] is an implicit output.
func (e *Edge) IsImplicitOut(index int) bool {
	return index >= len(e.Outputs)-e.ImplicitOuts
}

// IsPhony reports whether this edge is the built-in no-op rule.
func (e *Edge) IsPhony() bool {
	return e.Rule == kPhonyRule
}

// UseConsole reports whether this edge runs in the console pool, inheriting
// the parent's stdio instead of being captured.
func (e *Edge) UseConsole() bool {
	return e.Pool == kConsolePool
}

// OutputsReadyFlag reports whether every output of this edge is ready to be
// consumed by its dependents.
func (e *Edge) OutputsReadyFlag() bool { return e.OutputsReady }

// AllInputsReady reports whether every input-producing edge has finished.
func (e *Edge) AllInputsReady() bool {
	for _, in := range e.Inputs {
		if in.InEdge != nil && !in.InEdge.OutputsReady {
			return false
		}
	}
	return true
}

// MaybePhonycycleDiagnostic reports whether this edge is a phony edge that
// was allowed to keep a self-referencing input (normally filtered by the
// manifest parser unless configured to permit it).
func (e *Edge) MaybePhonycycleDiagnostic() bool {
	return e.IsPhony() && len(e.Outputs) == 1
}

// GetBinding evaluates key against this edge's scope: edge bindings, then
// rule bindings, falling back to the enclosing file scope.
func (e *Edge) GetBinding(key string) string {
	env := newEdgeEnv(e, kShellEscape)
	return env.LookupVariable(key)
}

// GetBindingBool evaluates key and reports whether it is non-empty.
func (e *Edge) GetBindingBool(key string) bool {
	return e.GetBinding(key) != ""
}

// GetUnescapedDepfile returns the "depfile" binding unescaped for shell use.
func (e *Edge) GetUnescapedDepfile() string {
	env := newEdgeEnv(e, doNotEscape)
	return env.LookupVariable("depfile")
}

// GetUnescapedDyndep returns the "dyndep" binding unescaped for shell use.
func (e *Edge) GetUnescapedDyndep() string {
	env := newEdgeEnv(e, doNotEscape)
	return env.LookupVariable("dyndep")
}

// GetUnescapedRspfile returns the "rspfile" binding unescaped for shell use.
func (e *Edge) GetUnescapedRspfile() string {
	env := newEdgeEnv(e, doNotEscape)
	return env.LookupVariable("rspfile")
}

// EvaluateCommand expands the "command" binding (or "rspfile_content" when
// inclRspFile is set and an rspfile is configured) in this edge's scope.
func (e *Edge) EvaluateCommand(inclRspFile bool) string {
	command := e.GetBinding("command")
	if inclRspFile {
		if rspfile := e.GetBinding("rspfile_content"); rspfile != "" {
			command += ";rspfile=" + rspfile
		}
	}
	return command
}

// Dump prints debugging information about the edge.
func (e *Edge) Dump(prefix string) {
	printf("%s[ ", prefix)
	for _, in := range e.Inputs {
		printf("%s ", in.Path())
	}
	printf("--%s-> ", e.Rule.Name)
	for _, out := range e.Outputs {
		printf("%s ", out.Path())
	}
	if len(e.Validations) != 0 {
		printf("validations ")
		for _, v := range e.Validations {
			printf("%s ", v.Path())
		}
	}
	if e.Pool != nil && e.Pool.Name != "" {
		printf("(in pool '%s')", e.Pool.Name)
	}
	printf("] 0x%p\n", e)
}

// kShellEscape / doNotEscape select whether EdgeEnv escapes $in/$out for
// consumption by a shell.
type escapeKind int

const (
	kShellEscape escapeKind = iota
	doNotEscape
)

// EdgeEnv implements Env for an Edge, synthesizing $in/$out/$in_newline/
// $out_newline and detecting cycles among recursively-evaluated rule
// variables.
type EdgeEnv struct {
	lookups   []string
	edge      *Edge
	escape    escapeKind
	recursive bool
}

func newEdgeEnv(edge *Edge, escape escapeKind) *EdgeEnv {
	return &EdgeEnv{edge: edge, escape: escape}
}

// LookupVariable implements Env.
func (e *EdgeEnv) LookupVariable(name string) string {
	switch name {
	case "in", "in_newline":
		explicitDepsCount := len(e.edge.Inputs) - e.edge.ImplicitDeps - e.edge.OrderOnlyDeps
		sep := byte(' ')
		if name == "in_newline" {
			sep = '\n'
		}
		return e.makePathList(e.edge.Inputs[:explicitDepsCount], sep)
	case "out", "out_newline":
		explicitOutsCount := len(e.edge.Outputs) - e.edge.ImplicitOuts
		sep := byte(' ')
		if name == "out_newline" {
			sep = '\n'
		}
		return e.makePathList(e.edge.Outputs[:explicitOutsCount], sep)
	}

	if e.recursive {
		for _, l := range e.lookups {
			if l == name {
				cycle := strings.Join(append(append([]string{}, e.lookups...), name), " -> ")
				panic("anvil: cycle in rule variables: " + cycle)
			}
		}
	}

	eval := e.edge.Rule.GetBinding(name)
	if e.recursive && eval != nil {
		e.lookups = append(e.lookups, name)
	}
	result := e.edge.Env.LookupWithFallback(name, eval, e)
	if e.recursive && eval != nil {
		e.lookups = e.lookups[:len(e.lookups)-1]
	}
	return result
}

func (e *EdgeEnv) makePathList(nodes []*Node, sep byte) string {
	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteByte(sep)
		}
		path := n.PathDecanonicalized()
		if e.escape == kShellEscape {
			sb.WriteString(getShellEscapedString(path))
		} else {
			sb.WriteString(path)
		}
	}
	return sb.String()
}

// DepfileParserOptions configures depfile parsing; currently no knobs are
// exposed, but the type exists so callers have a stable spot to add them.
type DepfileParserOptions struct{}

// ImplicitDepLoader loads the implicit dependencies an edge discovers at
// build time, from either a depfile or the deps log.
type ImplicitDepLoader struct {
	state               *State
	diskInterface       DiskInterface
	depsLog             *DepsLog
	depfileParserOpts   DepfileParserOptions
}

// NewImplicitDepLoader builds an ImplicitDepLoader.
func NewImplicitDepLoader(state *State, depsLog *DepsLog, diskInterface DiskInterface, opts DepfileParserOptions) *ImplicitDepLoader {
	return &ImplicitDepLoader{state: state, depsLog: depsLog, diskInterface: diskInterface, depfileParserOpts: opts}
}

// DepsLogStore returns the deps log this loader consults.
func (l *ImplicitDepLoader) DepsLogStore() *DepsLog { return l.depsLog }

// LoadDeps loads discovered dependencies for edge, from a depfile or the
// deps log per its "deps" binding. Returns (loaded, err): loaded is false
// (with no err) when no additional deps info exists, which the caller
// treats as "force dirty, regenerate it".
func (l *ImplicitDepLoader) LoadDeps(edge *Edge) (bool, error) {
	depsType := edge.GetBinding("deps")
	if depsType != "" {
		return l.loadDepsFromLog(edge)
	}
	depfile := edge.GetUnescapedDepfile()
	if depfile != "" {
		return l.loadDepFile(edge, depfile)
	}
	// No deps declared at all; always considered satisfied.
	edge.DepsLoaded = true
	return true, nil
}

func (l *ImplicitDepLoader) loadDepFile(edge *Edge, path string) (bool, error) {
	content, status, err := l.diskInterface.ReadFile(path)
	if status != ReadOkay {
		if status == ReadNotFound {
			EXPLAIN("depfile %q doesn't exist", path)
			return false, nil
		}
		return false, fmt.Errorf("loading %q: %w", path, err)
	}
	buf := append([]byte(content), 0)
	var parser DepfileParser
	if err := parser.Parse(buf); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if len(parser.ins) == 0 {
		return true, nil
	}
	start, end := l.preallocateSpace(edge, len(parser.ins))
	nodes := make([]*Node, 0, len(parser.ins))
	for _, in := range parser.ins {
		p, slashBits := CanonicalizePathBits(in)
		nodes = append(nodes, l.state.GetNode(p, slashBits))
	}
	copy(edge.Inputs[start:end], nodes)
	for _, n := range nodes {
		n.OutEdges = append(n.OutEdges, edge)
	}
	edge.ImplicitDeps += len(nodes)
	return true, nil
}

func (l *ImplicitDepLoader) loadDepsFromLog(edge *Edge) (bool, error) {
	if len(edge.Outputs) == 0 {
		return true, nil
	}
	output := edge.Outputs[0]
	entry := l.depsLog.GetDeps(output)
	if entry == nil {
		EXPLAIN("deps for %q are missing", output.Path())
		return false, nil
	}
	start, end := l.preallocateSpace(edge, len(entry.Nodes))
	copy(edge.Inputs[start:end], entry.Nodes)
	for _, n := range entry.Nodes {
		n.OutEdges = append(n.OutEdges, edge)
	}
	edge.ImplicitDeps += len(entry.Nodes)
	return true, nil
}

// preallocateSpace inserts count empty slots into edge's inputs, right
// before the order-only deps, returning [start,end) to fill in.
func (l *ImplicitDepLoader) preallocateSpace(edge *Edge, count int) (int, int) {
	insertAt := len(edge.Inputs) - edge.OrderOnlyDeps
	grown := make([]*Node, len(edge.Inputs)+count)
	copy(grown, edge.Inputs[:insertAt])
	copy(grown[insertAt+count:], edge.Inputs[insertAt:])
	edge.Inputs = grown
	edge.GeneratedByDepLoader = true
	return insertAt, insertAt + count
}

// DependencyScan walks the graph recomputing dirty/outputs-ready state for
// every node and edge, consulting the build log, deps log and dyndep files
// as it goes.
type DependencyScan struct {
	buildLog      *BuildLog
	diskInterface DiskInterface
	depLoader     *ImplicitDepLoader
	dyndepLoader  *DyndepLoader
}

// NewDependencyScan builds a DependencyScan over the given logs.
func NewDependencyScan(state *State, buildLog *BuildLog, depsLog *DepsLog, diskInterface DiskInterface, opts DepfileParserOptions) *DependencyScan {
	return &DependencyScan{
		buildLog:      buildLog,
		diskInterface: diskInterface,
		depLoader:     NewImplicitDepLoader(state, depsLog, diskInterface, opts),
		dyndepLoader:  NewDyndepLoader(state, diskInterface),
	}
}

// BuildLog returns the build log consulted for command-hash/mtime history.
func (d *DependencyScan) BuildLog() *BuildLog { return d.buildLog }

// SetBuildLog replaces the build log consulted for history.
func (d *DependencyScan) SetBuildLog(log *BuildLog) { d.buildLog = log }

// DepsLog returns the deps log consulted for discovered dependencies.
func (d *DependencyScan) DepsLog() *DepsLog { return d.depLoader.depsLog }

// RecomputeDirty computes node's and its producing edge's (if any) dirty
// state, recursively, detecting dependency cycles along the way.
func (d *DependencyScan) RecomputeDirty(node *Node) error {
	var stack []*Node
	return d.recomputeDirty(node, &stack)
}

func (d *DependencyScan) recomputeDirty(node *Node, stack *[]*Node) error {
	edge := node.InEdge
	if edge == nil {
		// This node has no producing edge; it is dirty iff missing.
		if node.StatusKnown() {
			return nil
		}
		if err := node.StatIfNecessary(d.diskInterface); err != nil {
			return err
		}
		if !node.Exists() {
			EXPLAIN("%s has no in-edge and is missing", node.Path())
		}
		node.Dirty = !node.Exists()
		return nil
	}

	if edge.Mark == VisitDone {
		return nil
	}

	if err := d.verifyDAG(node, *stack); err != nil {
		return err
	}

	edge.Mark = VisitInStack
	*stack = append(*stack, node)

	dirty := false
	edge.OutputsReady = true
	edge.DepsMissing = false

	if !edge.DepsLoaded {
		if edge.Dyndep != nil && edge.Dyndep.DyndepPending {
			if err := d.recomputeDirty(edge.Dyndep, stack); err != nil {
				return err
			}
			if edge.Dyndep.InEdge == nil || edge.Dyndep.InEdge.OutputsReady {
				if err := d.LoadDyndeps(edge.Dyndep); err != nil {
					return err
				}
			}
		}
	}

	for _, out := range edge.Outputs {
		if err := out.StatIfNecessary(d.diskInterface); err != nil {
			return err
		}
	}

	if !edge.DepsLoaded {
		edge.DepsLoaded = true
		loaded, err := d.depLoader.LoadDeps(edge)
		if err != nil {
			return err
		}
		if !loaded {
			// LoadDeps already called EXPLAIN; force a rebuild to regenerate
			// the missing dependency info.
			dirty = true
			edge.DepsMissing = true
		}
	}

	var mostRecentInput *Node
	for i, in := range edge.Inputs {
		if err := d.recomputeDirty(in, stack); err != nil {
			return err
		}

		if inEdge := in.InEdge; inEdge != nil {
			if !inEdge.OutputsReady {
				edge.OutputsReady = false
			}
		}

		if !edge.IsOrderOnly(i) {
			if in.Dirty {
				EXPLAIN("%s is dirty", in.Path())
				dirty = true
			} else if mostRecentInput == nil || in.Mtime() > mostRecentInput.Mtime() {
				mostRecentInput = in
			}
		}
	}

	if !dirty {
		outputsDirty, err := d.recomputeOutputsDirty(edge, mostRecentInput)
		if err != nil {
			return err
		}
		dirty = outputsDirty
	}

	if dirty {
		for _, out := range edge.Outputs {
			out.MarkDirty()
		}
	}

	// An edge is normally not ready when dirty; phony edges with no inputs
	// have nothing to do, so stay ready regardless.
	if dirty && !(edge.IsPhony() && len(edge.Inputs) == 0) {
		edge.OutputsReady = false
	}

	edge.Mark = VisitDone
	if (*stack)[len(*stack)-1] != node {
		panic("anvil: dependency stack corrupted")
	}
	*stack = (*stack)[:len(*stack)-1]

	return nil
}

func (d *DependencyScan) verifyDAG(node *Node, stack []*Node) error {
	edge := node.InEdge
	if edge.Mark != VisitInStack {
		return nil
	}

	start := 0
	for start < len(stack) && stack[start].InEdge != edge {
		start++
	}
	// Report the cycle starting at the node revisited, not some other
	// output of the same edge. Running `anvil b` on
	//   build a b: cat c
	//   build c: cat a
	// should report a -> c -> a instead of b -> c -> a.
	stack[start] = node

	var sb strings.Builder
	sb.WriteString("dependency cycle: ")
	for _, n := range stack[start:] {
		sb.WriteString(n.Path())
		sb.WriteString(" -> ")
	}
	sb.WriteString(node.Path())
	if start+1 == len(stack) && edge.MaybePhonycycleDiagnostic() {
		// The manifest parser would have filtered out the self-referencing
		// input if it were not configured to allow the error.
		sb.WriteString(" [-w phonycycle=err]")
	}
	return fmt.Errorf("%s", sb.String())
}

// RecomputeOutputsDirty reports whether edge's outputs are dirty given
// mostRecentInput, without touching the rest of the graph's dirty state.
// Used to re-check an edge after one of its outputs turned out not to have
// actually changed (a restat).
func (d *DependencyScan) RecomputeOutputsDirty(edge *Edge, mostRecentInput *Node) (bool, error) {
	return d.recomputeOutputsDirty(edge, mostRecentInput)
}

func (d *DependencyScan) recomputeOutputsDirty(edge *Edge, mostRecentInput *Node) (bool, error) {
	command := edge.EvaluateCommand(true)
	for _, out := range edge.Outputs {
		dirty, err := d.recomputeOutputDirty(edge, mostRecentInput, command, out)
		if err != nil {
			return false, err
		}
		if dirty {
			return true, nil
		}
	}
	return false, nil
}

func (d *DependencyScan) recomputeOutputDirty(edge *Edge, mostRecentInput *Node, command string, output *Node) (bool, error) {
	if edge.IsPhony() {
		if len(edge.Inputs) == 0 && !output.Exists() {
			EXPLAIN("output %s of phony edge with no inputs doesn't exist", output.Path())
			return true, nil
		}
		if mostRecentInput != nil {
			output.UpdatePhonyMtime(mostRecentInput.Mtime())
		}
		return false, nil
	}

	if !output.Exists() {
		EXPLAIN("output %s doesn't exist", output.Path())
		return true, nil
	}

	var entry *LogEntry
	outputMtime := output.Mtime()
	usedRestat := false
	if mostRecentInput != nil && outputMtime < mostRecentInput.Mtime() {
		if edge.GetBindingBool("restat") && d.buildLog != nil {
			if e := d.buildLog.LookupByOutput(output.Path()); e != nil {
				entry = e
				outputMtime = e.Mtime
				usedRestat = true
			}
		}
		if outputMtime < mostRecentInput.Mtime() {
			restatNote := ""
			if usedRestat {
				restatNote = "restat of "
			}
			EXPLAIN("%soutput %s older than most recent input %s (%d vs %d)", restatNote, output.Path(), mostRecentInput.Path(), outputMtime, mostRecentInput.Mtime())
			return true, nil
		}
	}

	if d.buildLog != nil {
		generator := edge.GetBindingBool("generator")
		if entry == nil {
			entry = d.buildLog.LookupByOutput(output.Path())
		}
		if entry != nil {
			if !generator && hashCommand(command) != entry.CommandHash {
				EXPLAIN("command line changed for %s", output.Path())
				return true, nil
			}
			if mostRecentInput != nil && entry.Mtime < mostRecentInput.Mtime() {
				EXPLAIN("recorded mtime of %s older than most recent input %s (%d vs %d)", output.Path(), mostRecentInput.Path(), entry.Mtime, mostRecentInput.Mtime())
				return true, nil
			}
		}
		if entry == nil && !generator {
			EXPLAIN("command line not found in log for %s", output.Path())
			return true, nil
		}
	}

	return false, nil
}

// LoadDyndeps loads node's dyndep file, wiring any newly-discovered
// implicit inputs/outputs/restat flags into the graph.
func (d *DependencyScan) LoadDyndeps(node *Node) error {
	return d.dyndepLoader.LoadDyndeps(node, nil)
}

// LoadDyndepsInto loads node's dyndep file into an already-parsed ddf,
// used when the caller parsed it up front (e.g. the build driver).
func (d *DependencyScan) LoadDyndepsInto(node *Node, ddf *DyndepFile) error {
	return d.dyndepLoader.LoadDyndeps(node, ddf)
}
