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

// Want enumerates the possible steps the Plan wants for an edge.
type Want int

const (
	// WantNothing means we do not want to build the edge, but we might want
	// to build one of its dependents.
	WantNothing Want = iota
	// WantToStart means we want to build the edge, but have not yet
	// scheduled it.
	WantToStart
	// WantToFinish means we want to build the edge, have scheduled it, and
	// are waiting for it to complete.
	WantToFinish
)

// EdgeResult is the outcome Plan.EdgeFinished is told about.
type EdgeResult int

const (
	EdgeFailed EdgeResult = iota
	EdgeSucceeded
)

// Plan stores the state of a build plan: what we intend to build, and which
// steps we're ready to execute.
type Plan struct {
	// want_ tracks which edges we want to build in this plan. If this map
	// has no entry for an edge, we do not want to build the edge or its
	// dependents. If it does, the value says what we want for the edge.
	want_ map[*Edge]Want

	ready_ *EdgeSet

	builder_ *Builder

	// Total number of edges that have commands (not phony).
	command_edges_ int

	// Total remaining number of wanted edges.
	wanted_edges_ int
}

// NewPlan returns an empty plan, optionally tied to builder so that
// nodeFinished can trigger dyndep loading.
func NewPlan(builder *Builder) *Plan {
	return &Plan{
		want_:  map[*Edge]Want{},
		ready_: NewEdgeSet(),
		builder_: builder,
	}
}

// MoreToDo reports whether there's more work to be done.
func (p *Plan) MoreToDo() bool {
	return p.wanted_edges_ > 0 && p.command_edges_ > 0
}

// CommandEdgeCount returns the number of edges with commands to run.
func (p *Plan) CommandEdgeCount() int {
	return p.command_edges_
}

// Reset clears the want and ready sets.
func (p *Plan) Reset() {
	p.command_edges_ = 0
	p.wanted_edges_ = 0
	p.ready_ = NewEdgeSet()
	p.want_ = map[*Edge]Want{}
}

// AddTarget adds target to the plan, along with all its dependencies.
// Returns false if target doesn't need to be built.
func (p *Plan) AddTarget(target *Node) (bool, error) {
	return p.addSubTarget(target, nil, nil)
}

func (p *Plan) addSubTarget(node, dependent *Node, dyndepWalk map[*Edge]struct{}) (bool, error) {
	edge := node.InEdge
	if edge == nil { // Leaf node.
		if node.Dirty {
			referenced := ""
			if dependent != nil {
				referenced = fmt.Sprintf(", needed by '%s',", dependent.Path())
			}
			return false, fmt.Errorf("'%s'%s missing and no known rule to make it", node.Path(), referenced)
		}
		return false, nil
	}

	if edge.OutputsReady {
		return false, nil // Don't need to do anything.
	}

	want, alreadyWanted := p.want_[edge]
	if !alreadyWanted {
		p.want_[edge] = WantNothing
		want = WantNothing
	}

	if dyndepWalk != nil && want == WantToFinish {
		return false, nil // Don't need to do anything with an already-scheduled edge.
	}

	// If we do need to build edge and we haven't already marked it as
	// wanted, mark it now.
	if node.Dirty && want == WantNothing {
		want = WantToStart
		p.want_[edge] = want
		p.edgeWanted(edge)
		if dyndepWalk == nil && edge.AllInputsReady() {
			p.scheduleWork(edge)
		}
	}

	if dyndepWalk != nil {
		dyndepWalk[edge] = struct{}{}
	}

	if alreadyWanted {
		return true, nil // We've already processed the inputs.
	}

	for _, in := range edge.Inputs {
		if ok, err := p.addSubTarget(in, node, dyndepWalk); !ok && err != nil {
			return false, err
		}
	}

	return true, nil
}

func (p *Plan) edgeWanted(edge *Edge) {
	p.wanted_edges_++
	if !edge.IsPhony() {
		p.command_edges_++
	}
}

// FindWork pops a ready edge off the queue of edges to build. Returns nil
// if there's no work to do.
func (p *Plan) FindWork() *Edge {
	if p.ready_.Len() == 0 {
		return nil
	}
	return p.ready_.Pop()
}

// scheduleWork submits a ready edge as a candidate for execution. The edge
// may be delayed, for example if it belongs to a currently-full pool.
func (p *Plan) scheduleWork(edge *Edge) {
	want := p.want_[edge]
	if want == WantToFinish {
		// This edge has already been scheduled. We can get here again if an
		// edge and one of its dependencies share an order-only input, or if
		// a node duplicates an out edge.
		return
	}
	p.want_[edge] = WantToFinish

	pool := edge.Pool
	if pool.ShouldDelayEdge() {
		pool.DelayEdge(edge)
		pool.RetrieveReadyEdges(p.ready_)
	} else {
		pool.EdgeScheduled(edge)
		p.ready_.Add(edge)
	}
}

// EdgeFinished marks an edge as done building (whether it succeeded or
// failed). If any of the edge's outputs are dyndep bindings of their
// dependents, this loads dynamic dependencies from the nodes' paths.
func (p *Plan) EdgeFinished(edge *Edge, result EdgeResult) error {
	want, ok := p.want_[edge]
	if !ok {
		panic("edge not in plan")
	}
	directlyWanted := want != WantNothing

	// See if this job frees up any delayed jobs.
	if directlyWanted {
		edge.Pool.EdgeFinished(edge)
	}
	edge.Pool.RetrieveReadyEdges(p.ready_)

	// The rest of this function only applies to successful commands.
	if result != EdgeSucceeded {
		return nil
	}

	if directlyWanted {
		p.wanted_edges_--
	}
	delete(p.want_, edge)
	edge.OutputsReady = true

	// Check off any nodes we were waiting for with this edge.
	for _, o := range edge.Outputs {
		if err := p.nodeFinished(o); err != nil {
			return err
		}
	}
	return nil
}

// nodeFinished updates the plan with the knowledge that node is up to date.
// If node is a dyndep binding on any of its dependents, this loads dynamic
// dependencies from the node's path.
func (p *Plan) nodeFinished(node *Node) error {
	// If this node provides dyndep info, load it now.
	if node.DyndepPending {
		if p.builder_ == nil {
			panic("dyndep requires Plan to have a Builder")
		}
		// Load the now-clean dyndep file. This also updates the build plan
		// and schedules any new work that is ready.
		return p.builder_.LoadDyndeps(node)
	}

	// See if we want any edges from this node.
	for _, oe := range node.OutEdges {
		if _, ok := p.want_[oe]; !ok {
			continue
		}
		if err := p.edgeMaybeReady(oe); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plan) edgeMaybeReady(edge *Edge) error {
	if edge.AllInputsReady() {
		if p.want_[edge] != WantNothing {
			p.scheduleWork(edge)
		} else {
			// We do not need to build this edge, but we might need to build
			// one of its dependents.
			if err := p.EdgeFinished(edge, EdgeSucceeded); err != nil {
				return err
			}
		}
	}
	return nil
}

// CleanNode cleans node during the build.
func (p *Plan) CleanNode(scan *DependencyScan, node *Node) error {
	node.Dirty = false

	for _, oe := range node.OutEdges {
		// Don't process edges that we don't actually want.
		want, ok := p.want_[oe]
		if !ok || want == WantNothing {
			continue
		}

		// Don't attempt to clean an edge if it failed to load deps.
		if oe.DepsMissing {
			continue
		}

		// If all non-order-only inputs for this edge are now clean, we
		// might have changed the dirty state of the outputs.
		end := len(oe.Inputs) - oe.OrderOnlyDeps
		allClean := true
		for _, in := range oe.Inputs[:end] {
			if in.Dirty {
				allClean = false
				break
			}
		}
		if !allClean {
			continue
		}

		// Recompute mostRecentInput.
		var mostRecentInput *Node
		for _, in := range oe.Inputs[:end] {
			if mostRecentInput == nil || in.Mtime() > mostRecentInput.Mtime() {
				mostRecentInput = in
			}
		}

		// Now, this edge is dirty if any of the outputs are dirty. If the
		// edge isn't dirty, clean the outputs and mark the edge as not
		// wanted.
		outputsDirty, err := scan.RecomputeOutputsDirty(oe, mostRecentInput)
		if err != nil {
			return err
		}
		if !outputsDirty {
			for _, o := range oe.Outputs {
				if err := p.CleanNode(scan, o); err != nil {
					return err
				}
			}

			p.want_[oe] = WantNothing
			p.wanted_edges_--
			if !oe.IsPhony() {
				p.command_edges_--
			}
		}
	}
	return nil
}

// DyndepsLoaded updates the build plan to account for modifications made to
// the graph by information loaded from a dyndep file.
func (p *Plan) DyndepsLoaded(scan *DependencyScan, node *Node, ddf DyndepFile) error {
	// Recompute the dirty state of all our direct and indirect dependents
	// now that our dyndep information has been loaded.
	if err := p.refreshDyndepDependents(scan, node); err != nil {
		return err
	}

	// We loaded dyndep information for those out-edges of the dyndep node
	// that specify the node in a dyndep binding, but they may not be in the
	// plan. Starting with those already in the plan, walk the
	// newly-reachable portion of the graph through the dyndep-discovered
	// dependencies.

	// Find edges in the build plan for which we have new dyndep info.
	var dyndepRoots []*Edge
	for edge, ddi := range ddf {
		// If the edge outputs are ready we do not need to consider it here.
		if edge.OutputsReady {
			continue
		}
		if _, ok := p.want_[edge]; !ok {
			// This edge has not been encountered before, so nothing already
			// in the plan depends on it.
			continue
		}
		_ = ddi
		dyndepRoots = append(dyndepRoots, edge)
	}

	// Walk the dyndep-discovered portion of the graph to add it to the
	// build plan.
	dyndepWalk := map[*Edge]struct{}{}
	for _, edge := range dyndepRoots {
		ddi := ddf[edge]
		for _, in := range ddi.ImplicitInputs {
			if ok, err := p.addSubTarget(in, edge.Outputs[0], dyndepWalk); !ok && err != nil {
				return err
			}
		}
	}

	// Add out edges from this node that are in the plan (just as
	// nodeFinished would have without taking the dyndep code path).
	for _, oe := range node.OutEdges {
		if _, ok := p.want_[oe]; !ok {
			continue
		}
		dyndepWalk[oe] = struct{}{}
	}

	// See if any encountered edges are now ready.
	for edge := range dyndepWalk {
		if _, ok := p.want_[edge]; !ok {
			continue
		}
		if err := p.edgeMaybeReady(edge); err != nil {
			return err
		}
	}

	return nil
}

func (p *Plan) refreshDyndepDependents(scan *DependencyScan, node *Node) error {
	// Collect the transitive closure of dependents and mark their edges as
	// not yet visited by RecomputeDirty.
	dependents := map[*Node]struct{}{}
	p.unmarkDependents(node, dependents)

	// Update the dirty state of all dependents and check if their edges
	// have become wanted.
	for n := range dependents {
		// Check if this dependent node is now dirty. Also checks for new
		// cycles.
		if err := scan.RecomputeDirty(n); err != nil {
			return err
		}
		if !n.Dirty {
			continue
		}

		// This edge was encountered before. However, we may not have
		// wanted to build it if the outputs were not known to be dirty.
		// With dyndep information an output is now known to be dirty, so
		// we want the edge.
		edge := n.InEdge
		if edge == nil || edge.OutputsReady {
			panic("dyndep dependent should have a not-yet-ready producing edge")
		}
		want, ok := p.want_[edge]
		if !ok {
			panic("dyndep dependent edge should already be tracked")
		}
		if want == WantNothing {
			p.want_[edge] = WantToStart
			p.edgeWanted(edge)
		}
	}
	return nil
}

func (p *Plan) unmarkDependents(node *Node, dependents map[*Node]struct{}) {
	for _, edge := range node.OutEdges {
		if _, ok := p.want_[edge]; !ok {
			continue
		}

		if edge.Mark != VisitNone {
			edge.Mark = VisitNone
			for _, o := range edge.Outputs {
				if _, seen := dependents[o]; !seen {
					dependents[o] = struct{}{}
					p.unmarkDependents(o, dependents)
				}
			}
		}
	}
}

// Dump prints the current state of the plan; used by -d stats.
func (p *Plan) Dump() {
	fmt.Printf("pending: %d\n", len(p.want_))
	for edge, want := range p.want_ {
		if want != WantNothing {
			fmt.Print("want ")
		}
		edge.Dump("")
	}
	fmt.Printf("ready: %d\n", p.ready_.Len())
}

// Result is the outcome of waiting for one command to finish.
type Result struct {
	Edge   *Edge
	Status ExitStatus
	Output string
}

// Success reports whether the command completed successfully.
func (r *Result) Success() bool {
	return r.Status == ExitSuccess
}

// CommandRunner wraps running the build subcommands, so tests can
// substitute a fake that doesn't actually run anything.
type CommandRunner interface {
	CanRunMore() bool
	StartCommand(edge *Edge) bool
	// WaitForCommand blocks until a command completes, filling in result.
	// Returns false if interrupted.
	WaitForCommand(result *Result) bool
	GetActiveEdges() []*Edge
	Abort()
}

// DryRunCommandRunner is a CommandRunner that doesn't actually run the
// commands; used by "-n".
type DryRunCommandRunner struct {
	finished_ []*Edge
}

func (d *DryRunCommandRunner) CanRunMore() bool {
	return true
}

func (d *DryRunCommandRunner) StartCommand(edge *Edge) bool {
	d.finished_ = append(d.finished_, edge)
	return true
}

func (d *DryRunCommandRunner) WaitForCommand(result *Result) bool {
	if len(d.finished_) == 0 {
		return false
	}
	result.Status = ExitSuccess
	result.Edge = d.finished_[0]
	d.finished_ = d.finished_[1:]
	return true
}

func (d *DryRunCommandRunner) GetActiveEdges() []*Edge { return nil }
func (d *DryRunCommandRunner) Abort()                  {}

// RealCommandRunner is the CommandRunner that actually spawns subprocesses.
type RealCommandRunner struct {
	config_          *BuildConfig
	subprocs_        SubprocessSet
	subprocToEdge_   map[Subprocess]*Edge
	jobserver_       Jobserver
	subprocHasToken_ map[Subprocess]bool
}

// NewRealCommandRunner returns a command runner bound to config. If config
// doesn't already carry a Jobserver (the common case — most callers leave
// it nil and let this inspect MAKEFLAGS itself), one is created here.
func NewRealCommandRunner(config *BuildConfig) *RealCommandRunner {
	js := config.jobserver
	if js == nil {
		js = NewJobserverClient()
	}
	return &RealCommandRunner{
		config_:          config,
		subprocs_:        NewSubprocessSet(),
		subprocToEdge_:   map[Subprocess]*Edge{},
		jobserver_:       js,
		subprocHasToken_: map[Subprocess]bool{},
	}
}

func (r *RealCommandRunner) GetActiveEdges() []*Edge {
	edges := make([]*Edge, 0, len(r.subprocToEdge_))
	for _, e := range r.subprocToEdge_ {
		edges = append(edges, e)
	}
	return edges
}

func (r *RealCommandRunner) Abort() {
	r.subprocs_.Clear()
}

func (r *RealCommandRunner) CanRunMore() bool {
	subprocNumber := r.subprocs_.Running() + r.subprocs_.Finished()
	if subprocNumber >= r.config_.parallelism {
		return false
	}
	if r.subprocs_.Running() == 0 || r.config_.max_load_average <= 0 {
		return true
	}
	return GetLoadAverage() < r.config_.max_load_average
}

// StartCommand launches edge's command. Every client always has one free
// implicit token, so the first concurrently-running job never consults the
// jobserver; any job beyond that must win a non-blocking token Acquire
// first, so a parent make process stays in control of total concurrency
// across the whole build tree.
func (r *RealCommandRunner) StartCommand(edge *Edge) bool {
	needsToken := r.subprocs_.Running() > 0
	if needsToken && !r.jobserver_.Acquire() {
		return false
	}
	command := edge.EvaluateCommand(false)
	subproc := r.subprocs_.Add(command, edge.UseConsole())
	if subproc == nil {
		if needsToken {
			r.jobserver_.Release()
		}
		return false
	}
	r.subprocToEdge_[subproc] = edge
	if needsToken {
		r.subprocHasToken_[subproc] = true
	}
	return true
}

func (r *RealCommandRunner) WaitForCommand(result *Result) bool {
	var subproc Subprocess
	for subproc == nil {
		subproc = r.subprocs_.NextFinished()
		if subproc == nil {
			if r.subprocs_.DoWork() {
				return false
			}
		}
	}

	result.Status = subproc.Finish()
	result.Output = subproc.GetOutput()

	edge, ok := r.subprocToEdge_[subproc]
	if !ok {
		panic("finished subprocess has no associated edge")
	}
	result.Edge = edge
	delete(r.subprocToEdge_, subproc)
	if r.subprocHasToken_[subproc] {
		r.jobserver_.Release()
		delete(r.subprocHasToken_, subproc)
	}
	subproc.Close()
	return true
}

// BuildConfig carries the options (verbosity, parallelism, ...) a build is
// run with.
type BuildConfig struct {
	verbosity               Verbosity
	dry_run                 bool
	parallelism             int
	failures_allowed        int
	// max_load_average is the maximum load average we must not exceed. A
	// value <= 0 means no limit.
	max_load_average       float64
	depfile_parser_options DepfileParserOptions
	// jobserver is the token source consulted before starting every
	// concurrent job beyond the first. Left nil by NewBuildConfig;
	// NewRealCommandRunner fills it in from MAKEFLAGS unless a caller sets
	// one explicitly (tests use this to inject a fake).
	jobserver Jobserver
}

// NewBuildConfig returns a BuildConfig with ninja's defaults.
func NewBuildConfig() BuildConfig {
	return BuildConfig{
		verbosity:        NORMAL,
		parallelism:      1,
		failures_allowed: 1,
		max_load_average: -1,
	}
}

// Verbosity controls how much a build prints while it runs.
type Verbosity int

const (
	QUIET          Verbosity = iota // No output -- used when testing.
	NO_STATUS_UPDATE                // Regular output but suppress status updates.
	NORMAL                          // Regular output and status updates.
	VERBOSE
)

// RunningEdgeMap tracks, for every edge currently executing, the relative
// time (milliseconds since the build started) it was launched at.
type RunningEdgeMap map[*Edge]int64

// Builder wraps the build process: starting commands, updating status.
type Builder struct {
	state_          *State
	config_         *BuildConfig
	plan_           *Plan
	command_runner_ CommandRunner
	status_         Status

	// running_edges_ maps a running edge to the time it started running.
	running_edges_ RunningEdgeMap

	// start_time_millis_ is when the build started.
	start_time_millis_ int64

	disk_interface_ DiskInterface
	scan_           *DependencyScan
}

// NewBuilder wires together everything a build needs: the graph, config,
// logs, disk access and status reporting.
func NewBuilder(state *State, config *BuildConfig, buildLog *BuildLog, depsLog *DepsLog, disk DiskInterface, status Status, startTimeMillis int64) *Builder {
	b := &Builder{
		state_:             state,
		config_:            config,
		running_edges_:     RunningEdgeMap{},
		start_time_millis_: startTimeMillis,
		disk_interface_:    disk,
		status_:            status,
	}
	b.plan_ = NewPlan(b)
	b.scan_ = NewDependencyScan(state, buildLog, depsLog, disk, config.depfile_parser_options)
	return b
}

// SetBuildLog is used by tests.
func (b *Builder) SetBuildLog(log *BuildLog) {
	b.scan_.SetBuildLog(log)
}

// Cleanup deletes the outputs of any commands still running after an
// interrupted build.
func (b *Builder) Cleanup() {
	if b.command_runner_ == nil {
		return
	}
	activeEdges := b.command_runner_.GetActiveEdges()
	b.command_runner_.Abort()

	for _, e := range activeEdges {
		depfile := e.GetUnescapedDepfile()
		for _, o := range e.Outputs {
			// Only delete this output if it was actually modified. This
			// matters for things like the generator where we don't want to
			// delete the manifest file if we can avoid it. But if the rule
			// uses a depfile, always delete: consider the case where we
			// need to rebuild an output because of a modified header file
			// mentioned in a depfile, and the command touches its depfile
			// but is interrupted before it touches its output file.
			newMtime, err := b.disk_interface_.Stat(o.Path())
			if err != nil {
				b.status_.Error("%s", err)
			}
			if depfile != "" || o.Mtime() != newMtime {
				b.disk_interface_.RemoveFile(o.Path())
			}
		}
		if depfile != "" {
			b.disk_interface_.RemoveFile(depfile)
		}
	}
}

// AddTargetName adds a target to the build by name, scanning dependencies.
func (b *Builder) AddTargetName(name string) (*Node, error) {
	node := b.state_.lookupNode(name)
	if node == nil {
		return nil, fmt.Errorf("unknown target: '%s'", name)
	}
	if err := b.AddTarget(node); err != nil {
		return nil, err
	}
	return node, nil
}

// AddTarget adds target to the build, scanning its dependencies.
func (b *Builder) AddTarget(target *Node) error {
	if err := b.scan_.RecomputeDirty(target); err != nil {
		return err
	}

	if inEdge := target.InEdge; inEdge != nil {
		if inEdge.OutputsReady {
			return nil // Nothing to do.
		}
	}

	if _, err := b.plan_.AddTarget(target); err != nil {
		return err
	}
	return nil
}

// AlreadyUpToDate reports whether the build targets are already up to date.
func (b *Builder) AlreadyUpToDate() bool {
	return !b.plan_.MoreToDo()
}

// Build runs the build. It is an error to call this when AlreadyUpToDate
// is true.
func (b *Builder) Build() error {
	if b.AlreadyUpToDate() {
		panic("Build called with nothing to do")
	}

	b.status_.PlanHasTotalEdges(b.plan_.CommandEdgeCount())
	pendingCommands := 0
	failuresAllowed := b.config_.failures_allowed

	// Set up the command runner if we haven't done so already.
	if b.command_runner_ == nil {
		if b.config_.dry_run {
			b.command_runner_ = &DryRunCommandRunner{}
		} else {
			b.command_runner_ = NewRealCommandRunner(b.config_)
		}
	}

	b.status_.BuildStarted()

	// This main loop runs the entire build process. First, we attempt to
	// start as many commands as the command runner allows. Second, we
	// attempt to wait for / reap the next finished command.
	for b.plan_.MoreToDo() {
		if failuresAllowed > 0 && b.command_runner_.CanRunMore() {
			if edge := b.plan_.FindWork(); edge != nil {
				if edge.GetBindingBool("generator") {
					b.scan_.BuildLog().Close()
				}

				if err := b.StartEdge(edge); err != nil {
					b.Cleanup()
					b.status_.BuildFinished()
					return err
				}

				if edge.IsPhony() {
					if err := b.plan_.EdgeFinished(edge, EdgeSucceeded); err != nil {
						b.Cleanup()
						b.status_.BuildFinished()
						return err
					}
				} else {
					pendingCommands++
				}

				// We made some progress; go back to the main loop.
				continue
			}
		}

		// See if we can reap any finished commands.
		if pendingCommands > 0 {
			var result Result
			if !b.command_runner_.WaitForCommand(&result) || result.Status == ExitInterrupted {
				b.Cleanup()
				b.status_.BuildFinished()
				return fmt.Errorf("interrupted by user")
			}

			pendingCommands--
			if err := b.FinishCommand(&result); err != nil {
				b.Cleanup()
				b.status_.BuildFinished()
				return err
			}

			if !result.Success() && failuresAllowed > 0 {
				failuresAllowed--
			}

			// We made some progress; start the main loop over.
			continue
		}

		// If we get here, we cannot make any more progress.
		b.status_.BuildFinished()
		switch {
		case failuresAllowed == 0:
			if b.config_.failures_allowed > 1 {
				return fmt.Errorf("subcommands failed")
			}
			return fmt.Errorf("subcommand failed")
		case failuresAllowed < b.config_.failures_allowed:
			return fmt.Errorf("cannot make progress due to previous errors")
		default:
			return fmt.Errorf("stuck [this is a bug]")
		}
	}

	b.status_.BuildFinished()
	return nil
}

// StartEdge starts running edge's command, if it has one.
func (b *Builder) StartEdge(edge *Edge) error {
	defer metricRecord("StartEdge")()
	if edge.IsPhony() {
		return nil
	}

	startTimeMillis := GetTimeMillis() - b.start_time_millis_
	b.running_edges_[edge] = startTimeMillis

	b.status_.BuildEdgeStarted(edge, startTimeMillis)

	// Create directories necessary for outputs.
	for _, o := range edge.Outputs {
		if err := makeDirs(b.disk_interface_, o.Path()); err != nil {
			return err
		}
	}

	// Create the response file, if needed.
	if rspfile := edge.GetUnescapedRspfile(); rspfile != "" {
		content := edge.GetBinding("rspfile_content")
		if err := b.disk_interface_.WriteFile(rspfile, content); err != nil {
			return err
		}
	}

	if !b.command_runner_.StartCommand(edge) {
		return fmt.Errorf("command '%s' failed.", edge.EvaluateCommand(false))
	}

	return nil
}

// FinishCommand updates status and the build/deps logs after a command
// terminates. Returns an error if the build can't proceed further.
func (b *Builder) FinishCommand(result *Result) error {
	defer metricRecord("FinishCommand")()

	edge := result.Edge

	// First try to extract dependencies from the result, if any. This must
	// happen first as it filters the command output (we want to filter
	// /showIncludes output even on a compile failure), and extraction
	// itself can fail, which makes the command fail from a build
	// perspective.
	var depsNodes []*Node
	depsType := edge.GetBinding("deps")
	depsPrefix := edge.GetBinding("msvc_deps_prefix")
	if depsType != "" {
		nodes, filteredOutput, err := b.ExtractDeps(result, depsType, depsPrefix)
		if err != nil && result.Success() {
			if result.Output != "" {
				result.Output += "\n"
			}
			result.Output += err.Error()
			result.Status = ExitFailure
		} else {
			depsNodes = nodes
			if filteredOutput != "" {
				result.Output = filteredOutput
			}
		}
	}

	startTimeMillis, ok := b.running_edges_[edge]
	if !ok {
		panic("FinishCommand called for an edge that wasn't started")
	}
	endTimeMillis := GetTimeMillis() - b.start_time_millis_
	delete(b.running_edges_, edge)

	b.status_.BuildEdgeFinished(edge, endTimeMillis, result.Success(), result.Output)

	// The rest of this function only applies to successful commands.
	if !result.Success() {
		return b.plan_.EdgeFinished(edge, EdgeFailed)
	}

	// Restat the edge outputs.
	var outputMtime TimeStamp
	restat := edge.GetBindingBool("restat")
	if !b.config_.dry_run {
		nodeCleaned := false

		for _, o := range edge.Outputs {
			newMtime, err := b.disk_interface_.Stat(o.Path())
			if err != nil {
				return err
			}
			if newMtime > outputMtime {
				outputMtime = newMtime
			}
			if o.Mtime() == newMtime && restat {
				// The rule command did not change the output. Propagate the
				// clean state through the build graph. This also applies to
				// nonexistent outputs (mtime == 0).
				if err := b.plan_.CleanNode(b.scan_, o); err != nil {
					return err
				}
				nodeCleaned = true
			}
		}

		if nodeCleaned {
			var restatMtime TimeStamp
			// If any output was cleaned, find the most recent mtime of any
			// (existing) non-order-only input or the depfile.
			end := len(edge.Inputs) - edge.OrderOnlyDeps
			for _, in := range edge.Inputs[:end] {
				inputMtime, err := b.disk_interface_.Stat(in.Path())
				if err != nil {
					return err
				}
				if inputMtime > restatMtime {
					restatMtime = inputMtime
				}
			}

			if depfile := edge.GetUnescapedDepfile(); restatMtime != 0 && depsType == "" && depfile != "" {
				depfileMtime, err := b.disk_interface_.Stat(depfile)
				if err != nil {
					return err
				}
				if depfileMtime > restatMtime {
					restatMtime = depfileMtime
				}
			}

			// The total number of edges in the plan may have changed as a
			// result of a restat.
			b.status_.PlanHasTotalEdges(b.plan_.CommandEdgeCount())

			outputMtime = restatMtime
		}
	}

	if err := b.plan_.EdgeFinished(edge, EdgeSucceeded); err != nil {
		return err
	}

	// Delete any left over response file.
	if rspfile := edge.GetUnescapedRspfile(); rspfile != "" && !g_keep_rsp {
		b.disk_interface_.RemoveFile(rspfile)
	}

	if log := b.scan_.BuildLog(); log != nil {
		if err := log.RecordCommand(edge, int(startTimeMillis), int(endTimeMillis), outputMtime); err != nil {
			return fmt.Errorf("writing to build log: %w", err)
		}
	}

	if depsType != "" && !b.config_.dry_run {
		if len(edge.Outputs) == 0 {
			panic("should have been rejected by parser")
		}
		for _, o := range edge.Outputs {
			depsMtime, err := b.disk_interface_.Stat(o.Path())
			if err != nil {
				return err
			}
			if err := b.scan_.DepsLog().RecordDeps(o, depsMtime, depsNodes); err != nil {
				return fmt.Errorf("writing to deps log: %w", err)
			}
		}
	}
	return nil
}

// ExtractDeps pulls dependency information for edge's command out of
// result, in whichever format depsType names. It returns the discovered
// nodes and, for msvc, the command output with the /showIncludes lines
// filtered out.
func (b *Builder) ExtractDeps(result *Result, depsType, depsPrefix string) ([]*Node, string, error) {
	switch depsType {
	case "msvc":
		parser := NewCLParser()
		filteredOutput, err := parser.Parse(result.Output, depsPrefix)
		if err != nil {
			return nil, "", err
		}
		depsNodes := make([]*Node, 0, len(parser.Includes()))
		for include := range parser.Includes() {
			// ^uint64(0) (all bits set) assumes that with MSVC-parsed headers
			// it's fine to always render slashes as backslashes, since some
			// will certainly already be backslashes anyway.
			depsNodes = append(depsNodes, b.state_.GetNode(include, ^uint64(0)))
		}
		return depsNodes, filteredOutput, nil

	case "gcc":
		depfile := result.Edge.GetUnescapedDepfile()
		if depfile == "" {
			return nil, "", fmt.Errorf("edge with deps=gcc but no depfile makes no sense")
		}

		content, status, err := b.disk_interface_.ReadFile(depfile)
		switch status {
		case ReadOkay:
		case ReadNotFound:
			// A missing depfile is treated as empty.
		default:
			return nil, "", err
		}
		if content == "" {
			return nil, "", nil
		}

		deps := NewDepfileParser(b.config_.depfile_parser_options)
		buf := append([]byte(content), 0)
		if err := deps.Parse(buf); err != nil {
			return nil, "", err
		}

		depsNodes := make([]*Node, 0, len(deps.Ins()))
		for _, in := range deps.Ins() {
			path, slashBits := CanonicalizePathBits(in)
			depsNodes = append(depsNodes, b.state_.GetNode(path, slashBits))
		}

		if !g_keep_depfile {
			if err := b.disk_interface_.RemoveFile(depfile); err != nil {
				return nil, "", fmt.Errorf("deleting depfile: %w", err)
			}
		}
		return depsNodes, "", nil

	default:
		Fatal("unknown deps type '%s'", depsType)
		return nil, "", nil
	}
}

// LoadDyndeps loads the dyndep information provided by node and folds it
// into the build plan.
func (b *Builder) LoadDyndeps(node *Node) error {
	b.status_.BuildLoadDyndeps()

	ddf := DyndepFile{}
	if err := b.scan_.LoadDyndepsInto(node, &ddf); err != nil {
		return err
	}

	if err := b.plan_.DyndepsLoaded(b.scan_, node, ddf); err != nil {
		return err
	}

	// New command edges may have been added to the plan.
	b.status_.PlanHasTotalEdges(b.plan_.CommandEdgeCount())
	return nil
}
